// SPDX-License-Identifier: MIT
package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"voiceeq/internal/audio"
	"voiceeq/internal/snapshot"
	"voiceeq/internal/spectrum"
)

var testPalette = spectrum.Palette{Boost: "#22c55e", Cut: "#ef4444", Neutral: "#60a5fa"}

// flatSnapshot has every bin at level.
func flatSnapshot(level uint8) snapshot.FrequencySnapshot {
	mags := make([]uint8, 1024)
	for i := range mags {
		mags[i] = level
	}
	return snapshot.FrequencySnapshot{Magnitudes: mags, SampleRate: 44100}
}

func TestPlotCellsFullScale(t *testing.T) {
	l := spectrum.Compute(flatSnapshot(255), nil, 60, 12, CellMargins)
	grid := plotCells(l)

	if len(grid) != int(l.PlotHeight) {
		t.Fatalf("rows = %d, want %d", len(grid), int(l.PlotHeight))
	}
	for r, row := range grid {
		if len(row) != int(l.PlotWidth) {
			t.Fatalf("row %d has %d columns", r, len(row))
		}
		// Low bins are sparse on a log axis and leave gaps; from 200 Hz up
		// every column is covered.
		from := int(spectrum.FrequencyToX(200, l.PlotWidth))
		for x, c := range row[from:] {
			if c.r != '█' {
				t.Fatalf("cell (%d,%d) = %q, want full block", r, from+x, c.r)
			}
		}
	}
}

func TestPlotCellsHalfScale(t *testing.T) {
	// 102/255 of 10 rows is exactly 4 rows.
	l := spectrum.Compute(flatSnapshot(102), nil, 56, 11, CellMargins)
	grid := plotCells(l)
	col := len(grid[0]) / 2

	rows := len(grid)
	for r, row := range grid {
		var want rune
		switch {
		case r < rows-4:
			want = ' '
		case r >= rows-3:
			want = '█'
		default:
			continue // top of the bar, subject to rounding
		}
		if row[col].r != want {
			t.Errorf("row %d = %q, want %q", r, row[col].r, want)
		}
	}
}

func TestPlotCellsTones(t *testing.T) {
	adjust := []spectrum.AdjustmentPoint{{FrequencyHz: 1000, GainDb: 3}, {FrequencyHz: 5000, GainDb: -2}}
	l := spectrum.Compute(flatSnapshot(200), adjust, 105, 12, CellMargins)
	grid := plotCells(l)
	bottom := grid[len(grid)-1]

	cases := []struct {
		freq float64
		want spectrum.Tone
	}{
		{1000, spectrum.Boost},
		{5000, spectrum.Cut},
		{50, spectrum.Neutral},
	}
	for _, tc := range cases {
		x := int(spectrum.FrequencyToX(tc.freq, l.PlotWidth))
		if got := bottom[x].tone; got != tc.want {
			t.Errorf("column at %g Hz tone = %v, want %v", tc.freq, got, tc.want)
		}
	}
}

func TestRenderPlaceholder(t *testing.T) {
	l := spectrum.Compute(snapshot.FrequencySnapshot{DiagnosticMessage: snapshot.SilenceMessage}, nil, 80, 20, CellMargins)
	if out := Render(l, testPalette); !strings.Contains(out, snapshot.SilenceMessage) {
		t.Errorf("placeholder not rendered: %q", out)
	}
}

func TestRenderDegenerate(t *testing.T) {
	l := spectrum.Compute(flatSnapshot(100), nil, 3, 20, CellMargins)
	if out := Render(l, testPalette); out != "" {
		t.Errorf("degenerate layout rendered %q", out)
	}
}

func TestRenderAxes(t *testing.T) {
	l := spectrum.Compute(flatSnapshot(100), nil, 80, 20, CellMargins)
	out := Render(l, testPalette)

	lines := strings.Split(out, "\n")
	if len(lines) != int(l.PlotHeight)+1 {
		t.Fatalf("lines = %d, want %d", len(lines), int(l.PlotHeight)+1)
	}
	for _, label := range []string{"20", "1k", "10k", "250"} {
		if !strings.Contains(out, label) {
			t.Errorf("missing axis label %q", label)
		}
	}
}

func TestXAxisLineNoOverlap(t *testing.T) {
	l := spectrum.Compute(flatSnapshot(100), nil, 30, 10, CellMargins)
	line := xAxisLine(l)

	valid := make(map[string]bool)
	for _, tk := range l.XTicks {
		valid[tk.Label] = true
	}
	fields := strings.Fields(line)
	if len(fields) < 3 {
		t.Fatalf("too few labels: %q", line)
	}
	for _, f := range fields {
		if !valid[f] {
			t.Errorf("label %q is not a tick label; labels overlap in %q", f, line)
		}
	}
}

func TestChartModelRelayoutOnResize(t *testing.T) {
	m := NewChartModel("Voice", flatSnapshot(150), nil, testPalette)
	if m.View() != "Initializing..." {
		t.Errorf("view before size = %q", m.View())
	}

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(ChartModel)
	if got := m.Layout().Width; got != 100 {
		t.Errorf("layout width = %d, want 100", got)
	}

	next, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	m = next.(ChartModel)
	l := m.Layout()
	if l.Width != 60 || l.Height != 20-chrome {
		t.Errorf("layout = %dx%d after resize", l.Width, l.Height)
	}
	if !strings.Contains(m.View(), "Voice") {
		t.Error("title missing from view")
	}
}

func TestChartModelDiagnostic(t *testing.T) {
	m := NewChartModel("Voice", snapshot.FrequencySnapshot{DiagnosticMessage: snapshot.DecodeErrorMessage}, nil, testPalette)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	if got := next.(ChartModel).Layout().Placeholder; got != snapshot.DecodeErrorMessage {
		t.Errorf("placeholder = %q", got)
	}
}

func TestChartModelQuit(t *testing.T) {
	m := NewChartModel("Voice", flatSnapshot(150), nil, testPalette)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q did not return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestWriteChartFallbackSize(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChart(&buf, TerminalSurface{}, flatSnapshot(120), nil, testPalette)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != FallbackRows {
		t.Errorf("lines = %d, want %d", len(lines), FallbackRows)
	}
}

func TestWriteChartFixedSurface(t *testing.T) {
	var buf bytes.Buffer
	WriteChart(&buf, spectrum.FixedSurface{Width: 40, Height: 8}, flatSnapshot(120), nil, testPalette)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 8 {
		t.Errorf("lines = %d, want 8", len(lines))
	}
}

var pickerDevices = []audio.Device{
	{ID: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultSampleRate: 48000},
	{ID: 1, Name: "USB Mic", MaxInputChannels: 1, DefaultSampleRate: 44100},
	{ID: 2, Name: "Headset", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 16000},
}

func keyMsg(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func TestDevicePickerSelectsInput(t *testing.T) {
	m := NewDevicePickerModel(func() ([]audio.Device, error) { return pickerDevices, nil })

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(m.Init()())

	if got := len(model.(DevicePickerModel).devices); got != 2 {
		t.Fatalf("listed %d devices, want the 2 inputs", got)
	}
	if strings.Contains(model.View(), "Speakers") {
		t.Error("output-only device listed")
	}

	model, _ = model.Update(keyMsg(tea.KeyDown))
	model, _ = model.Update(keyMsg(tea.KeyEnter))
	if model.(DevicePickerModel).activeScreen != ConfigScreen {
		t.Fatal("enter did not open the settings screen")
	}
	model, cmd := model.Update(keyMsg(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("confirming did not quit")
	}

	sel := model.(DevicePickerModel).Selection()
	if sel == nil || sel.Device.Name != "Headset" || sel.SampleRate != 16000 {
		t.Errorf("selection = %+v", sel)
	}
}

func TestDevicePickerBack(t *testing.T) {
	var model tea.Model = NewDevicePickerModel(nil)
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(devicesMsg{pickerDevices[1:]})
	model, _ = model.Update(keyMsg(tea.KeyEnter))
	model, _ = model.Update(keyMsg(tea.KeyDown))
	model, _ = model.Update(keyMsg(tea.KeyEsc))

	m := model.(DevicePickerModel)
	if m.activeScreen != ListScreen || m.Selection() != nil {
		t.Errorf("esc left screen %v selection %v", m.activeScreen, m.Selection())
	}
}

func TestDevicePickerError(t *testing.T) {
	boom := errors.New("no host api")
	m := NewDevicePickerModel(func() ([]audio.Device, error) { return nil, boom })

	var model tea.Model = m
	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(m.Init()())
	if !strings.Contains(model.View(), "no host api") {
		t.Errorf("view = %q", model.View())
	}
}

func TestClosestRate(t *testing.T) {
	cases := map[float64]float64{8000: 16000, 44100: 44100, 96000: 48000, 22000: 22050}
	for in, want := range cases {
		if got := sampleRates[closestRate(in)]; got != want {
			t.Errorf("closestRate(%g) = %g, want %g", in, got, want)
		}
	}
}
