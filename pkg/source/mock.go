package source

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/itohio/tracedown/pkg/config"
)

// Mock simulates a sensor for testing and development: a noisy sine that
// periodically drops out, leaving real gaps in the stream.
type Mock struct {
	cfg *config.MockConfig

	points    chan Point
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	startTime time.Time
}

// NewMock creates a new mocked source instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}

	return &Mock{
		cfg:    cfg,
		points: make(chan Point, DefaultBufferSize),
	}
}

// Connect starts generating points.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	ctx, cancel := context.WithCancel(context.Background())
	points := make(chan Point, DefaultBufferSize)
	m.points = points
	m.cancel = cancel
	m.connected = true
	m.startTime = time.Now()

	go m.generatePoints(ctx, points, m.startTime)

	return nil
}

// Close stops the generator. The points channel is closed once it has stopped.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false

	return nil
}

// Points returns the channel for reading points.
func (m *Mock) Points() <-chan Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points
}

// IsConnected returns whether the mock is generating points.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *Mock) generatePoints(ctx context.Context, points chan<- Point, start time.Time) {
	defer close(points)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			p, ok := m.pointAt(start, now.Sub(start))
			if !ok {
				continue
			}
			select {
			case points <- p:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// pointAt returns the reading elapsed after start, or false during a dropout.
func (m *Mock) pointAt(start time.Time, elapsed time.Duration) (Point, bool) {
	if m.inDropout(elapsed) {
		return Point{}, false
	}

	phase := 2 * math.Pi * elapsed.Seconds() / m.cfg.Period.Seconds()
	value := m.cfg.Amplitude*math.Sin(phase) + rand.NormFloat64()*m.cfg.NoiseLevel

	return Point{
		Timestamp: start.Add(elapsed),
		Value:     value,
	}, true
}

// inDropout reports whether elapsed falls into the silent tail of a dropout cycle.
func (m *Mock) inDropout(elapsed time.Duration) bool {
	every, length := m.cfg.DropoutEvery, m.cfg.DropoutDuration
	if every <= 0 || length <= 0 {
		return false
	}
	return elapsed%every >= every-length
}
