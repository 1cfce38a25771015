package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/tracedown/pkg/downsample"
	"github.com/itohio/tracedown/pkg/source"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createSerialTab(state),
		createDownsampleTab(state),
		createDisplayTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

func saveConfig(state *appState) bool {
	if err := state.cfg.Save(state.cfgPath); err != nil {
		dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
		return false
	}
	return true
}

// createSerialTab creates the Serial configuration tab.
func createSerialTab(state *appState) *container.TabItem {
	ports, err := source.Ports()
	portOptions := []string{}
	portMap := make(map[string]string) // Map display name to actual port name

	if err == nil {
		for _, port := range ports {
			displayName := port.Name
			if port.Description != "" && port.Description != port.Name {
				displayName = fmt.Sprintf("%s (%s)", port.Name, port.Description)
			}
			portOptions = append(portOptions, displayName)
			portMap[displayName] = port.Name
		}
	}

	// Add current port if not in list
	currentPort := state.cfg.Serial.Port
	currentDisplay := currentPort
	found := false
	for _, opt := range portOptions {
		if portMap[opt] == currentPort {
			currentDisplay = opt
			found = true
			break
		}
	}
	if !found && currentPort != "" {
		portOptions = append(portOptions, currentPort)
		portMap[currentPort] = currentPort
	}

	portSelect := widget.NewSelect(portOptions, nil)
	if currentDisplay != "" {
		portSelect.SetSelected(currentDisplay)
	}

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Serial.BaudRate))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
			{Text: "Baud Rate", Widget: baudEntry},
		},
		OnSubmit: func() {
			changed := false
			if portSelect.Selected != "" {
				selectedPort := portMap[portSelect.Selected]
				if selectedPort == "" {
					selectedPort = portSelect.Selected
				}
				changed = state.cfg.Serial.Port != selectedPort
				state.cfg.Serial.Port = selectedPort
			}
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil && baud > 0 {
				changed = changed || state.cfg.Serial.BaudRate != baud
				state.cfg.Serial.BaudRate = baud
			}
			if !saveConfig(state) {
				return
			}

			if changed && !state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Serial", form)
}

// createDownsampleTab creates the Downsample configuration tab.
func createDownsampleTab(state *appState) *container.TabItem {
	ds := &state.cfg.Downsample

	strategySelect := widget.NewSelect([]string{
		downsample.StrategyEveryNth,
		downsample.StrategyMinMax,
		downsample.StrategyLTTB,
	}, nil)
	strategySelect.SetSelected(ds.Strategy)

	maxPointsEntry := widget.NewEntry()
	maxPointsEntry.SetText(strconv.Itoa(ds.MaxPoints))

	gapsCheck := widget.NewCheck("", nil)
	gapsCheck.SetChecked(ds.Interleave())

	quantileEntry := widget.NewEntry()
	quantileEntry.SetText(strconv.FormatFloat(ds.Quantile(), 'f', -1, 64))

	dtypesEntry := widget.NewEntry()
	dtypesEntry.SetPlaceHolder("float.*, int.* (empty = any)")
	dtypesEntry.SetText(strings.Join(ds.AllowedDtypes, ", "))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Strategy", Widget: strategySelect},
			{Text: "Max Points", Widget: maxPointsEntry},
			{Text: "Interleave Gaps", Widget: gapsCheck},
			{Text: "Gap Quantile", Widget: quantileEntry},
			{Text: "Allowed Dtypes", Widget: dtypesEntry},
		},
		OnSubmit: func() {
			next := *ds
			if strategySelect.Selected != "" {
				next.Strategy = strategySelect.Selected
			}
			if n, err := strconv.Atoi(maxPointsEntry.Text); err == nil && n > 0 {
				next.MaxPoints = n
			}
			interleave := gapsCheck.Checked
			next.InterleaveGaps = &interleave
			if q, err := strconv.ParseFloat(quantileEntry.Text, 64); err == nil {
				next.GapQuantile = &q
			}
			next.AllowedDtypes = splitPatterns(dtypesEntry.Text)

			downsampler, err := downsample.NewFromConfig[float64](next)
			if err != nil {
				dialog.ShowError(fmt.Errorf("invalid downsample settings: %w", err), state.window)
				return
			}

			*ds = next
			if !saveConfig(state) {
				return
			}
			state.scopeWidget.SetDownsampler(downsampler, ds.MaxPoints)
			state.scopeWidget.UpdateData(state.buffer.Series())
		},
	}

	return container.NewTabItem("Downsample", form)
}

func splitPatterns(text string) []string {
	var patterns []string
	for _, p := range strings.Split(text, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// createDisplayTab creates the Display configuration tab.
func createDisplayTab(state *appState) *container.TabItem {
	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Display.WindowSeconds))

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(fmt.Sprintf("%d", state.cfg.Display.AverageSamples))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
		},
		OnSubmit: func() {
			ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64)
			if err != nil || ws <= 0 {
				dialog.ShowError(fmt.Errorf("window must be a positive number of seconds, got %q", windowSecondsEntry.Text), state.window)
				return
			}
			state.cfg.Display.WindowSeconds = ws
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil && avg >= 0 {
				state.cfg.Display.AverageSamples = avg
			}
			if !saveConfig(state) {
				return
			}

			// Window and averaging are part of the chain; rebuild it
			wasConnected := state.connected()
			if wasConnected {
				handleConnect(state)
			}
			state.buffer = newBuffer(state)
			if wasConnected {
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Display", form)
}

// createMockTab creates the Mock source configuration tab.
func createMockTab(state *appState) *container.TabItem {
	amplitudeEntry := widget.NewEntry()
	amplitudeEntry.SetText(fmt.Sprintf("%.3f", state.cfg.Mock.Amplitude))

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(fmt.Sprintf("%.4f", state.cfg.Mock.NoiseLevel))

	periodEntry := widget.NewEntry()
	periodEntry.SetText(state.cfg.Mock.Period.String())

	sampleRateEntry := widget.NewEntry()
	sampleRateEntry.SetText(state.cfg.Mock.SampleRate.String())

	dropoutEveryEntry := widget.NewEntry()
	dropoutEveryEntry.SetText(state.cfg.Mock.DropoutEvery.String())

	dropoutDurationEntry := widget.NewEntry()
	dropoutDurationEntry.SetText(state.cfg.Mock.DropoutDuration.String())

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Amplitude", Widget: amplitudeEntry},
			{Text: "Noise Level", Widget: noiseLevelEntry},
			{Text: "Period", Widget: periodEntry},
			{Text: "Sample Rate", Widget: sampleRateEntry},
			{Text: "Dropout Every", Widget: dropoutEveryEntry},
			{Text: "Dropout Duration", Widget: dropoutDurationEntry},
		},
		OnSubmit: func() {
			if a, err := strconv.ParseFloat(amplitudeEntry.Text, 64); err == nil {
				state.cfg.Mock.Amplitude = a
			}
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				state.cfg.Mock.NoiseLevel = nl
			}
			if p, err := time.ParseDuration(periodEntry.Text); err == nil && p > 0 {
				state.cfg.Mock.Period = p
			}
			if sr, err := time.ParseDuration(sampleRateEntry.Text); err == nil && sr > 0 {
				state.cfg.Mock.SampleRate = sr
			}
			if de, err := time.ParseDuration(dropoutEveryEntry.Text); err == nil {
				state.cfg.Mock.DropoutEvery = de
			}
			if dd, err := time.ParseDuration(dropoutDurationEntry.Text); err == nil {
				state.cfg.Mock.DropoutDuration = dd
			}
			if !saveConfig(state) {
				return
			}
			if state.useMock {
				reconnect(state)
			}
		},
	}

	return container.NewTabItem("Mock", form)
}
