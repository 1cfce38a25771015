package stream

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/itohio/tracedown/pkg/series"
	"github.com/itohio/tracedown/pkg/source"
)

// Window keeps the points of the last windowDuration and notifies
// subscribers with a series snapshot after every point.
// Points are kept in arrival order, oldest first; trimming is by timestamp,
// not by count.
type Window struct {
	name           string
	windowDuration time.Duration

	points []source.Point
	mu     sync.RWMutex

	callbacks []func(series.Series[float64])
	cbMu      sync.RWMutex

	// Set when the input channel closes; suppresses further callbacks
	shutdown bool
}

// DefaultWindow replaces a non-positive window duration.
const DefaultWindow = 30 * time.Second

// New creates a window holding the given duration of points.
// Series snapshots are labelled with name.
func New(name string, windowDuration time.Duration) *Window {
	if windowDuration <= 0 {
		logrus.WithField("window", windowDuration).Warn("non-positive window, using default")
		windowDuration = DefaultWindow
	}
	return &Window{
		name:           name,
		windowDuration: windowDuration,
	}
}

// ProcessPoints consumes the input channel until it closes.
func (w *Window) ProcessPoints(input <-chan source.Point) {
	for p := range input {
		w.processPoint(p)
	}
	w.mu.Lock()
	w.shutdown = true
	w.mu.Unlock()
}

func (w *Window) processPoint(p source.Point) {
	w.mu.Lock()
	w.points = append(w.points, p)

	cutoff := p.Timestamp.Add(-w.windowDuration)
	cutoffIndex := 0
	for i, q := range w.points {
		if q.Timestamp.After(cutoff) {
			cutoffIndex = i
			break
		}
	}
	if cutoffIndex > 0 {
		w.points = w.points[cutoffIndex:]
	}

	shouldNotify := !w.shutdown
	w.mu.Unlock()

	if shouldNotify {
		w.notifyCallbacks()
	}
}

// Points returns a copy of the buffered points.
func (w *Window) Points() []source.Point {
	w.mu.RLock()
	defer w.mu.RUnlock()

	result := make([]source.Point, len(w.points))
	copy(result, w.points)
	return result
}

// Series returns the buffered points as a timestamp series.
func (w *Window) Series() series.Series[float64] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot()
}

func (w *Window) snapshot() series.Series[float64] {
	s := series.Series[float64]{
		Name:      w.name,
		IndexName: "time",
		Kind:      series.Timestamp,
		Samples:   make([]series.Sample[float64], len(w.points)),
	}
	for i, p := range w.points {
		s.Samples[i] = source.PointSample(p)
	}
	return s
}

// Clear drops all buffered points.
func (w *Window) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.points = nil
}

// OnUpdate registers a callback invoked with a fresh snapshot after each point.
// The callback runs on the ProcessPoints goroutine and should return quickly.
func (w *Window) OnUpdate(callback func(series.Series[float64])) {
	w.cbMu.Lock()
	defer w.cbMu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// ResetShutdown re-enables callbacks before a new input chain is attached.
func (w *Window) ResetShutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.shutdown = false
}

func (w *Window) notifyCallbacks() {
	w.mu.RLock()
	snap := w.snapshot()
	w.mu.RUnlock()

	w.cbMu.RLock()
	callbacks := make([]func(series.Series[float64]), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(snap)
		}
	}
}
