// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"voiceeq/internal/snapshot"
	"voiceeq/internal/spectrum"
)

// Terminal charts are laid out in character cells. The left margin holds
// the amplitude labels and the bottom row the frequency labels.
var CellMargins = spectrum.Margins{Top: 0, Right: 1, Bottom: 1, Left: 5}

// chrome is the number of rows taken by the title and help lines.
const chrome = 4

// Eighth blocks, from empty to full.
var blocks = []rune(" ▁▂▃▄▅▆▇█")

var (
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	placeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Italic(true)
)

var quitKey = key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"))

// ChartModel is a bubbletea model that draws one snapshot and lays it out
// again whenever the terminal is resized.
type ChartModel struct {
	title       string
	snap        snapshot.FrequencySnapshot
	adjustments []spectrum.AdjustmentPoint
	palette     spectrum.Palette

	width, height int
	layout        spectrum.Layout
	ready         bool
}

// NewChartModel creates a chart for snap. The palette holds hex colours.
func NewChartModel(title string, snap snapshot.FrequencySnapshot, adjustments []spectrum.AdjustmentPoint, palette spectrum.Palette) ChartModel {
	return ChartModel{
		title:       title,
		snap:        snap,
		adjustments: adjustments,
		palette:     palette,
	}
}

func (m ChartModel) Init() tea.Cmd {
	return nil
}

func (m ChartModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height-chrome
		m.ready = true
		m.relayout()

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ChartModel) relayout() {
	if !m.ready {
		return
	}
	m.layout = spectrum.Compute(m.snap, m.adjustments, m.width, m.height, CellMargins)
}

// Layout returns the current cell layout.
func (m ChartModel) Layout() spectrum.Layout { return m.layout }

func (m ChartModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	title := titleStyle.Render(m.title)
	help := infoStyle.Render("q: Quit")
	return fmt.Sprintf("%s\n\n%s\n%s", title, Render(m.layout, m.palette), help)
}

// cell is one character of the plot area.
type cell struct {
	r    rune
	tone spectrum.Tone
}

// plotCells rasterises the bars of l into rows of cells, top row first.
// Where several bars share a column the tallest wins.
func plotCells(l spectrum.Layout) [][]cell {
	cols, rows := int(l.PlotWidth), int(l.PlotHeight)
	if cols <= 0 || rows <= 0 {
		return nil
	}

	heights := make([]float64, cols)
	tones := make([]spectrum.Tone, cols)
	for _, b := range l.Bars {
		x0 := int(math.Floor(b.X))
		x1 := int(math.Ceil(b.X + b.Width))
		for x := max(x0, 0); x < min(x1, cols); x++ {
			if b.Height > heights[x] {
				heights[x] = b.Height
				tones[x] = b.Tone
			}
		}
	}

	grid := make([][]cell, rows)
	for r := range grid {
		grid[r] = make([]cell, cols)
		bottom := float64(rows - r - 1)
		for x := range cols {
			fill := math.Max(0, math.Min(1, heights[x]-bottom))
			grid[r][x] = cell{r: blocks[int(fill*8)], tone: tones[x]}
		}
	}
	return grid
}

// Render draws a cell layout as coloured text. An empty layout renders as
// an empty string and a placeholder as its message.
func Render(l spectrum.Layout, palette spectrum.Palette) string {
	if l.Empty() && len(l.XTicks) == 0 {
		return ""
	}
	if l.Placeholder != "" {
		return placeStyle.Render(l.Placeholder)
	}

	left := l.Margins.Left
	yLabels := make(map[int]string, len(l.YTicks))
	for _, t := range l.YTicks {
		yLabels[int(math.Round(t.Position))] = t.Label
	}

	styles := map[spectrum.Tone]lipgloss.Style{
		spectrum.Neutral: lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Color(spectrum.Neutral))),
		spectrum.Boost:   lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Color(spectrum.Boost))),
		spectrum.Cut:     lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Color(spectrum.Cut))),
	}

	var sb strings.Builder
	for r, row := range plotCells(l) {
		label := yLabels[r]
		sb.WriteString(axisStyle.Render(fmt.Sprintf("%*s│", left-1, label)))
		writeRuns(&sb, row, styles)
		sb.WriteByte('\n')
	}
	sb.WriteString(axisStyle.Render(xAxisLine(l)))
	return sb.String()
}

// writeRuns styles consecutive cells of the same tone together.
func writeRuns(sb *strings.Builder, row []cell, styles map[spectrum.Tone]lipgloss.Style) {
	for start := 0; start < len(row); {
		end := start
		var run strings.Builder
		for end < len(row) && row[end].tone == row[start].tone {
			run.WriteRune(row[end].r)
			end++
		}
		sb.WriteString(styles[row[start].tone].Render(run.String()))
		start = end
	}
}

// xAxisLine places frequency labels under their ticks, skipping any that
// would overlap the previous label.
func xAxisLine(l spectrum.Layout) string {
	width := l.Margins.Left + int(l.PlotWidth) + l.Margins.Right
	line := []rune(strings.Repeat(" ", width))
	next := 0
	for _, t := range l.XTicks {
		col := l.Margins.Left + int(math.Round(t.Position))
		label := []rune(t.Label)
		start := col - len(label)/2
		if start < next || start+len(label) > width {
			continue
		}
		copy(line[start:], label)
		next = start + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

// RunChart shows the chart full screen until the user quits.
func RunChart(m ChartModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
