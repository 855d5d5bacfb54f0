// SPDX-License-Identifier: MIT
package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voiceeq/internal/audio"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)
)

// ErrNoSelection is returned when the picker is closed without choosing.
var ErrNoSelection = errors.New("no input device selected")

// Sample rates offered on the configuration screen.
var sampleRates = []float64{16000, 22050, 44100, 48000}

// ScreenType defines which screen is currently active
type ScreenType int

const (
	ListScreen ScreenType = iota
	ConfigScreen
)

// Selection is the device and rate chosen in the picker.
type Selection struct {
	Device     audio.Device
	SampleRate float64
}

// DevicePickerModel lists the input devices and lets the user pick one and
// a sample rate to record the voice sample with.
type DevicePickerModel struct {
	fetch         func() ([]audio.Device, error)
	devices       []audio.Device
	selectedIndex int
	viewport      viewport.Model
	ready         bool
	err           error
	activeScreen  ScreenType

	sampleRateIndex int
	selection       *Selection
}

type devicesMsg struct {
	devices []audio.Device
}

type errMsg struct {
	err error
}

var (
	upKey     = key.NewBinding(key.WithKeys("up", "k"))
	downKey   = key.NewBinding(key.WithKeys("down", "j"))
	enterKey  = key.NewBinding(key.WithKeys("enter"))
	backKey   = key.NewBinding(key.WithKeys("esc"))
	abortKeys = key.NewBinding(key.WithKeys("q", "ctrl+c"))
)

// NewDevicePickerModel creates a picker that lists devices with fetch.
func NewDevicePickerModel(fetch func() ([]audio.Device, error)) DevicePickerModel {
	return DevicePickerModel{fetch: fetch, activeScreen: ListScreen}
}

func (m DevicePickerModel) Init() tea.Cmd {
	return func() tea.Msg {
		all, err := m.fetch()
		if err != nil {
			return errMsg{err}
		}
		var inputs []audio.Device
		for _, d := range all {
			if d.CanRecord() {
				inputs = append(inputs, d)
			}
		}
		return devicesMsg{inputs}
	}
}

func (m DevicePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refresh()

	case devicesMsg:
		m.devices = msg.devices
		m.refresh()

	case errMsg:
		m.err = msg.err

	case tea.KeyMsg:
		if key.Matches(msg, abortKeys) {
			return m, tea.Quit
		}
		if m.activeScreen == ListScreen {
			return m.updateList(msg)
		}
		return m.updateConfig(msg)
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m DevicePickerModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, upKey):
		if m.selectedIndex > 0 {
			m.selectedIndex--
		}
	case key.Matches(msg, downKey):
		if m.selectedIndex < len(m.devices)-1 {
			m.selectedIndex++
		}
	case key.Matches(msg, enterKey):
		if len(m.devices) == 0 {
			break
		}
		m.activeScreen = ConfigScreen
		m.sampleRateIndex = closestRate(m.devices[m.selectedIndex].DefaultSampleRate)
	}
	m.refresh()
	return m, nil
}

func (m DevicePickerModel) updateConfig(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, backKey):
		m.activeScreen = ListScreen
	case key.Matches(msg, upKey):
		if m.sampleRateIndex > 0 {
			m.sampleRateIndex--
		}
	case key.Matches(msg, downKey):
		if m.sampleRateIndex < len(sampleRates)-1 {
			m.sampleRateIndex++
		}
	case key.Matches(msg, enterKey):
		m.selection = &Selection{
			Device:     m.devices[m.selectedIndex],
			SampleRate: sampleRates[m.sampleRateIndex],
		}
		return m, tea.Quit
	}
	m.refresh()
	return m, nil
}

// closestRate picks the offered rate nearest the device default.
func closestRate(rate float64) int {
	best := 0
	for i, r := range sampleRates {
		if math.Abs(r-rate) < math.Abs(sampleRates[best]-rate) {
			best = i
		}
	}
	return best
}

func (m *DevicePickerModel) refresh() {
	if !m.ready {
		return
	}
	if m.activeScreen == ListScreen {
		m.viewport.SetContent(m.renderDevices())
	} else {
		m.viewport.SetContent(m.renderDeviceConfig())
	}
}

// Selection returns the chosen device, or nil if none was chosen.
func (m DevicePickerModel) Selection() *Selection { return m.selection }

func (m DevicePickerModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to exit.", m.err)
	}

	var title, help string
	if m.activeScreen == ListScreen {
		title = titleStyle.Render("Input Devices")
		help = infoStyle.Render("↑/↓: Navigate • Enter: Configure • q: Quit")
	} else {
		title = titleStyle.Render("Recording Settings")
		help = infoStyle.Render("↑/↓: Change Rate • Enter: Record • Esc: Back • q: Quit")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

func (m DevicePickerModel) renderDevices() string {
	if len(m.devices) == 0 {
		return "No input devices found."
	}

	var sb strings.Builder
	for i, d := range m.devices {
		info := fmt.Sprintf("%s\n    Input channels: %d, Default sample rate: %.0f Hz\n",
			d, d.MaxInputChannels, d.DefaultSampleRate)
		if i == m.selectedIndex {
			info = highlightStyle.Render(info)
		}
		sb.WriteString(info)
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m DevicePickerModel) renderDeviceConfig() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Record from: %s\n\nSample Rate:\n", m.devices[m.selectedIndex].Name)

	for i, rate := range sampleRates {
		marker := " "
		if i == m.sampleRateIndex {
			marker = "▶"
		}
		line := fmt.Sprintf("  %s %.0f Hz\n", marker, rate)
		if i == m.sampleRateIndex {
			line = highlightStyle.Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// PickDevice runs the picker full screen and returns the user's choice.
func PickDevice(fetch func() ([]audio.Device, error)) (Selection, error) {
	p := tea.NewProgram(NewDevicePickerModel(fetch), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return Selection{}, err
	}
	m := final.(DevicePickerModel)
	if m.err != nil {
		return Selection{}, m.err
	}
	if m.selection == nil {
		return Selection{}, ErrNoSelection
	}
	return *m.selection, nil
}
