package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/itohio/tracedown/pkg/config"
	"github.com/itohio/tracedown/pkg/downsample"
	"github.com/itohio/tracedown/pkg/series"
)

// ScopeWidget is a custom Fyne widget that displays an oscilloscope-style trace.
// Incoming traces are downsampled for display; gap markers break the line.
type ScopeWidget struct {
	widget.BaseWidget

	cfg *config.Config

	// Data (protected by mu)
	mu          sync.RWMutex
	downsampler *downsample.Downsampler[float64]
	maxPoints   int
	inputLen    int
	display     series.Series[float64]
	view        viewport
}

// New creates a new ScopeWidget instance.
func New(cfg *config.Config, downsampler *downsample.Downsampler[float64]) *ScopeWidget {
	s := &ScopeWidget{
		cfg:         cfg,
		downsampler: downsampler,
		maxPoints:   cfg.Downsample.MaxPoints,
	}
	s.view = autoScale(s.display, cfg.Display.WindowSeconds)
	s.ExtendBaseWidget(s)
	// Trigger initial refresh to display empty scope
	s.Refresh()
	return s
}

// SetDownsampler replaces the downsampler and the display point budget.
// The new settings apply from the next UpdateData.
func (s *ScopeWidget) SetDownsampler(d *downsample.Downsampler[float64], maxPoints int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downsampler = d
	s.maxPoints = maxPoints
}

// UpdateData downsamples trace for display.
// This should be called from the window callback using fyne.Do().
// On failure the previous display trace is kept.
func (s *ScopeWidget) UpdateData(trace series.Series[float64]) {
	s.mu.Lock()

	display, err := s.downsampler.Downsample(trace, s.maxPoints)
	if err != nil {
		s.mu.Unlock()
		logrus.WithError(err).WithField("points", trace.Len()).Warn("failed to downsample trace")
		return
	}

	s.inputLen = trace.Len()
	s.display = display
	s.view = autoScale(display, s.cfg.Display.WindowSeconds)

	s.mu.Unlock()

	// Refresh the widget (must be outside lock to avoid potential deadlock)
	s.Refresh()
}

// Display returns the trace currently drawn.
func (s *ScopeWidget) Display() series.Series[float64] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.display
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	grid := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255}) // Dark background
	return &scopeRenderer{
		scope:    s,
		grid:     grid,
		objects:  []fyne.CanvasObject{grid},
		lastSize: fyne.Size{Width: 0, Height: 0},
	}
}
