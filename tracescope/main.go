package main

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/itohio/tracedown/pkg/config"
	"github.com/itohio/tracedown/pkg/downsample"
	"github.com/itohio/tracedown/pkg/scope"
	"github.com/itohio/tracedown/pkg/series"
	"github.com/itohio/tracedown/pkg/source"
	"github.com/itohio/tracedown/pkg/stream"
)

// Scope refresh rate limit, ~60 FPS
const updateInterval = 16 * time.Millisecond

func main() {
	opts := readCommandLineOptions()
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.WithField("path", opts.ConfigPath).Info("loading configuration file")
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		logrus.WithError(err).Fatal("could not load configuration file")
	}

	if opts.Port != "" {
		cfg.Serial.Port = opts.Port
	}
	if opts.AverageSamples >= 0 {
		cfg.Display.AverageSamples = opts.AverageSamples
	}

	downsampler, err := downsample.NewFromConfig[float64](cfg.Downsample)
	if err != nil {
		logrus.WithError(err).Fatal("invalid downsample configuration")
	}

	application := app.NewWithID("com.itohio.tracescope")

	window := application.NewWindow("Trace Scope")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:         cfg,
		cfgPath:     opts.ConfigPath,
		window:      window,
		useMock:     opts.Mock,
		throttle:    newThrottle(updateInterval),
		scopeWidget: scope.New(cfg, downsampler),
	}
	state.buffer = newBuffer(state)

	toolbar := createToolbar(state)

	content := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		state.scopeWidget,
	)

	window.SetContent(content)
	window.SetOnClosed(func() {
		closeChain(state.chain)
	})
	window.ShowAndRun()
}

// newBuffer creates the point window feeding the scope.
func newBuffer(state *appState) *stream.Window {
	seconds := state.cfg.Display.WindowSeconds
	buffer := stream.New("value", time.Duration(seconds*float64(time.Second)))

	// The scope downsamples internally, so it gets the full window
	buffer.OnUpdate(func(trace series.Series[float64]) {
		state.throttle.do(func() {
			fyne.Do(func() {
				state.scopeWidget.UpdateData(trace)
			})
		})
	})
	return buffer
}

// chain tracks the components of the acquisition chain for graceful shutdown.
type chain struct {
	source     source.Source
	points     <-chan source.Point
	windowDone chan struct{} // Closed when the window goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	cfgPath     string
	buffer      *stream.Window
	scopeWidget *scope.ScopeWidget
	window      fyne.Window
	connectBtn  *widget.Button
	useMock     bool
	chain       *chain // Current acquisition chain (nil if not connected)
	throttle    *throttle
}

func (s *appState) connected() bool {
	return s.chain != nil && s.chain.source.IsConnected()
}

// createToolbar creates the application toolbar with Connect, Clear and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	clearBtn := widget.NewButtonWithIcon("", theme.ContentClearIcon(), func() {
		state.buffer.Clear()
		state.scopeWidget.UpdateData(state.buffer.Series())
	})

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	return container.NewHBox(connectBtn, clearBtn, settingsBtn)
}

// closeChain closes the source and waits for the window goroutine to drain.
func closeChain(c *chain) {
	if c == nil {
		return
	}

	// Closing the source closes its points channel
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			logrus.WithError(err).Warn("error closing source")
		}
	}

	// The window goroutine exits once the (possibly averaged) stream closes
	if c.windowDone != nil {
		<-c.windowDone
	}
}

func (s *appState) newSource() source.Source {
	if s.useMock {
		return source.NewMock(&s.cfg.Mock)
	}
	return source.NewSerial(s.cfg.Serial.Port, s.cfg.Serial.BaudRate, source.DefaultBufferSize)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		closeChain(state.chain)
		state.chain = nil
		state.connectBtn.SetIcon(theme.LoginIcon())
		logrus.Info("disconnected")
		return
	}

	src := state.newSource()
	if err := src.Connect(); err != nil {
		if state.useMock {
			dialog.ShowError(fmt.Errorf("failed to start simulated source: %w", err), state.window)
		} else {
			dialog.ShowError(fmt.Errorf("failed to connect to %s: %w", state.cfg.Serial.Port, err), state.window)
		}
		return
	}
	logrus.WithFields(logrus.Fields{
		"mock": state.useMock,
		"port": state.cfg.Serial.Port,
	}).Info("connected")
	state.connectBtn.SetIcon(theme.LogoutIcon())

	// Reset window shutdown flag for new chain
	state.buffer.ResetShutdown()

	points := src.Points()
	if state.cfg.Display.AverageSamples > 0 {
		points = stream.NewAveraging(state.cfg.Display.AverageSamples, 500)(points)
	}

	windowDone := make(chan struct{})
	go func() {
		defer close(windowDone)
		state.buffer.ProcessPoints(points)
	}()

	state.chain = &chain{
		source:     src,
		points:     points,
		windowDone: windowDone,
	}
}

// reconnect restarts the acquisition chain if it is running.
func reconnect(state *appState) {
	if !state.connected() {
		return
	}
	handleConnect(state)
	handleConnect(state)
}
