package scope

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/itohio/tracedown/pkg/series"
)

var (
	traceColor = color.RGBA{R: 255, G: 165, B: 0, A: 255} // Orange
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	infoColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
)

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	// Background
	grid *canvas.Rectangle

	// Objects list for Fyne
	objects []fyne.CanvasObject

	// Track last size to detect changes
	lastSize fyne.Size
}

// plotArea maps trace coordinates into widget coordinates.
type plotArea struct {
	x, y, width, height float32
	view                viewport
}

func (p plotArea) pos(xOffset, value float64) fyne.Position {
	x := p.x + float32(xOffset/p.view.xMax)*p.width
	y := p.y + p.height - float32((value-p.view.yMin)/(p.view.yMax-p.view.yMin))*p.height
	return fyne.NewPos(x, y)
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.grid.Resize(size)

	if r.lastSize.Width != size.Width || r.lastSize.Height != size.Height {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws the grid and the display trace.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	trace := r.scope.display
	view := r.scope.view
	inputLen := r.scope.inputLen
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	r.objects = []fyne.CanvasObject{r.grid}

	marginLeft := float32(60.0)
	marginRight := float32(20.0)
	marginTop := float32(20.0)
	marginBottom := float32(40.0)

	area := plotArea{
		x:      marginLeft,
		y:      marginTop,
		width:  size.Width - marginLeft - marginRight,
		height: size.Height - marginTop - marginBottom,
		view:   view,
	}

	r.drawGrid(area, trace.Kind)
	r.drawTrace(area, trace)
	r.drawInfo(area, trace, inputLen)
}

// drawGrid draws the oscilloscope-style grid.
func (r *scopeRenderer) drawGrid(area plotArea, kind series.IndexKind) {
	numHLines := 8
	for i := range numHLines + 1 {
		y := area.y + float32(i)*area.height/float32(numHLines)
		r.addLine(fyne.NewPos(area.x, y), fyne.NewPos(area.x+area.width, y), gridColor, 1)

		value := area.view.yMax - float64(i)*(area.view.yMax-area.view.yMin)/float64(numHLines)
		text := canvas.NewText(formatValue(value), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(area.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	numVLines := 10
	for i := range numVLines + 1 {
		x := area.x + float32(i)*area.width/float32(numVLines)
		r.addLine(fyne.NewPos(x, area.y), fyne.NewPos(x, area.y+area.height), gridColor, 1)

		offset := float64(i) * area.view.xMax / float64(numVLines)
		text := canvas.NewText(formatOffset(offset, kind), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(x-20, area.y+area.height+5))
		r.objects = append(r.objects, text)
	}
}

// drawTrace draws each non-null run as a polyline. A run of one sample is a dot.
func (r *scopeRenderer) drawTrace(area plotArea, trace series.Series[float64]) {
	for _, run := range segments(trace) {
		if run.End-run.Start == 1 {
			p := area.pos(trace.Offset(run.Start), trace.Samples[run.Start].Value)
			dot := canvas.NewCircle(traceColor)
			dot.Resize(fyne.NewSize(3, 3))
			dot.Move(p.SubtractXY(1.5, 1.5))
			r.objects = append(r.objects, dot)
			continue
		}

		prev := area.pos(trace.Offset(run.Start), trace.Samples[run.Start].Value)
		for i := run.Start + 1; i < run.End; i++ {
			cur := area.pos(trace.Offset(i), trace.Samples[i].Value)
			r.addLine(prev, cur, traceColor, 1.5)
			prev = cur
		}
	}
}

// drawInfo prints the point counts in the top-left corner.
func (r *scopeRenderer) drawInfo(area plotArea, trace series.Series[float64], inputLen int) {
	if trace.Empty() {
		return
	}
	info := fmt.Sprintf("%d / %d pts, %d gaps", trace.Len()-trace.NullCount(), inputLen, trace.NullCount())
	text := canvas.NewText(info, infoColor)
	text.TextSize = 11
	text.Alignment = fyne.TextAlignLeading
	text.Move(fyne.NewPos(area.x+10, area.y+10))
	r.objects = append(r.objects, text)
}

func (r *scopeRenderer) addLine(p1, p2 fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatValue(v float64) string {
	if math.Abs(v) < 1e-9 {
		return "0"
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

func formatOffset(offset float64, kind series.IndexKind) string {
	if kind != series.Timestamp {
		return formatValue(offset)
	}
	if offset < 1 {
		return strconv.FormatFloat(offset, 'f', 2, 64) + "s"
	}
	return strconv.FormatFloat(offset, 'f', 1, 64) + "s"
}
