package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the baud rate used when none is configured.
	DefaultBaudRate = 115200
	// DefaultBufferSize is the default size for the points channel buffer.
	DefaultBufferSize = 100
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads points from a line-oriented serial stream.
// Line format: unix_micros,value (an empty value is a null reading).
type Serial struct {
	port     string
	baudRate int
	bufSize  int

	conn      serial.Port
	points    chan Point
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
}

// NewSerial creates a serial source with the specified port, baud rate, and buffer size.
func NewSerial(port string, baudRate int, bufSize int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if bufSize == 0 {
		bufSize = DefaultBufferSize
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		bufSize:  bufSize,
		points:   make(chan Point, bufSize),
	}
}

// Ports returns a list of available serial ports, with USB product names when known.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			desc := d.Name
			if d.IsUSB && d.Product != "" {
				desc = fmt.Sprintf("%s %s:%s", d.Product, d.VID, d.PID)
			}
			result = append(result, Port{Name: d.Name, Description: desc})
		}
		return result, nil
	}

	names, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}

// Connect opens the serial port and starts reading points.
func (d *Serial) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{BaudRate: d.baudRate})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	points := make(chan Point, d.bufSize)
	d.conn = port
	d.points = points
	d.cancel = cancel
	d.connected = true

	go d.readPoints(ctx, port, points)

	return nil
}

// Close closes the port. The points channel is closed by the reader once it stops.
func (d *Serial) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return nil
	}

	d.cancel()
	if d.conn != nil {
		if err := d.conn.Close(); err != nil {
			logrus.WithError(err).WithField("port", d.port).Warn("error closing serial port")
		}
		d.conn = nil
	}
	d.connected = false

	return nil
}

// Points returns the channel for reading points.
func (d *Serial) Points() <-chan Point {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.points
}

// IsConnected returns whether the port is currently open.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readPoints(ctx context.Context, r io.Reader, points chan<- Point) {
	defer close(points)
	log := logrus.WithField("port", d.port)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		p, err := parseLine(line)
		if err != nil {
			log.WithError(err).WithField("line", line).Warn("skipping malformed line")
			continue
		}

		select {
		case points <- p:
		case <-ctx.Done():
			return
		default:
			log.Warn("points channel full, dropping point")
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, io.EOF) {
		log.WithError(err).Error("error reading from serial port")
	}
}

// parseLine parses "unix_micros,value". An empty or NaN value yields a null point.
// Example: 1717243200000000,21.5
func parseLine(line string) (Point, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Point{}, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	micros, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	p := Point{Timestamp: time.UnixMicro(micros)}

	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		p.Null = true
		return p, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Point{}, fmt.Errorf("invalid value: %w", err)
	}
	if math.IsNaN(v) {
		p.Null = true
		return p, nil
	}
	p.Value = v
	return p, nil
}
