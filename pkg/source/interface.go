package source

import "time"

// Point is a single reading delivered by a streaming source.
type Point struct {
	Timestamp time.Time
	Value     float64
	Null      bool // The source reported no value for this timestamp
}

// Source defines the interface for streaming sources (real or mocked).
// Points is closed once the source stops producing.
type Source interface {
	Connect() error
	Close() error
	Points() <-chan Point
	IsConnected() bool
}

var (
	_ Source = (*Serial)(nil)
	_ Source = (*Mock)(nil)
)
