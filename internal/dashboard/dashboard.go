// Package dashboard draws snapshots on a terminal. It only reads published
// snapshots, so a slow terminal never holds up sampling.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"plant_monitor/internal/evaluator"
	"plant_monitor/internal/models"

	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth = 64
	barCells     = 20

	clearScreen = "\x1b[H\x1b[2J"
)

var (
	colorTitleBg = lipgloss.Color("22")
	colorTitleFg = lipgloss.Color("156")
	colorBorder  = lipgloss.Color("65")
	colorLabel   = lipgloss.Color("252")
	colorDim     = lipgloss.Color("240")
	colorOk      = lipgloss.Color("78")
	colorWarn    = lipgloss.Color("220")
	colorCrit    = lipgloss.Color("196")
)

var labels = map[models.Metric]string{
	models.MetricTemperature: "Temperature",
	models.MetricHumidity:    "Humidity",
	models.MetricCO2:         "CO2",
	models.MetricLight:       "Light",
}

// Snapshots is the read side of the snapshot store.
type Snapshots interface {
	Current() models.Snapshot
	Subscribe() (updates <-chan struct{}, cancel func())
}

// Terminal renders to out, redrawing the whole screen each time.
type Terminal struct {
	out   io.Writer
	width int
	now   func() time.Time
}

func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, width: defaultWidth, now: time.Now}
}

// Run redraws on every snapshot signal until ctx is canceled, then draws the
// current snapshot once more so the final state stays on screen.
func (t *Terminal) Run(ctx context.Context, snaps Snapshots) {
	updates, cancel := snaps.Subscribe()
	defer cancel()

	t.draw(snaps.Current())
	for {
		select {
		case <-ctx.Done():
			t.draw(snaps.Current())
			return
		case <-updates:
			t.draw(snaps.Current())
		}
	}
}

func (t *Terminal) draw(s models.Snapshot) {
	_, _ = io.WriteString(t.out, clearScreen+t.Render(s)+"\n")
}

// Render builds the dashboard text for one snapshot.
func (t *Terminal) Render(s models.Snapshot) string {
	sections := []string{t.header(s)}

	if s.Reading == nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Width(t.width).
			Align(lipgloss.Center).
			Padding(1, 0).
			Render("Waiting for sensor data..."))
	} else {
		sections = append(sections, t.metrics(*s.Reading))
	}

	if s.Recommendation != nil {
		sections = append(sections, t.recommendation(*s.Recommendation))
	}
	if len(s.Errors) > 0 {
		errS := lipgloss.NewStyle().Foreground(colorCrit)
		lines := make([]string, 0, len(s.Errors))
		for _, e := range s.Errors {
			lines = append(lines, errS.Render("! "+e))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	sections = append(sections, t.footer(s))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func statusColor(st models.Status) lipgloss.Color {
	switch st {
	case models.StatusRunning:
		return colorOk
	case models.StatusDegraded:
		return colorWarn
	default:
		return colorCrit
	}
}

func (t *Terminal) header(s models.Snapshot) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("Plant Monitor")
	status := lipgloss.NewStyle().
		Bold(true).
		Foreground(statusColor(s.Status)).
		Render(string(s.Status))

	right := status
	if !s.UpdatedAt.IsZero() {
		right += lipgloss.NewStyle().Foreground(colorDim).Render("  " + s.UpdatedAt.Local().Format("15:04:05"))
	}
	gap := t.width - lipgloss.Width(logo) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Padding(0, 1).
		Width(t.width).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (t *Terminal) metrics(r models.Reading) string {
	labelS := lipgloss.NewStyle().Foreground(colorLabel).Width(12)
	valueS := lipgloss.NewStyle().Width(12).Align(lipgloss.Right)

	rows := make([]string, 0, len(models.Metrics))
	for _, m := range models.Metrics {
		band, _ := evaluator.Optimal(m)
		v, ok := r.Value(m)
		if !ok {
			rows = append(rows, labelS.Render(labels[m])+
				valueS.Foreground(colorDim).Render("n/a")+
				lipgloss.NewStyle().Foreground(colorDim).Render("  [--]"))
			continue
		}
		tag := evaluator.Indicator(m, v)
		tagColor := colorOk
		if tag != "[OK]" {
			tagColor = colorWarn
		}
		rows = append(rows, labelS.Render(labels[m])+
			valueS.Render(formatValue(m, v, band.Unit))+
			"  "+lipgloss.NewStyle().Foreground(tagColor).Width(7).Render(tag)+
			" "+bar(v, band))
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(t.width - 2).
		Render(strings.Join(rows, "\n"))
}

func formatValue(m models.Metric, v float64, unit string) string {
	if m == models.MetricCO2 || m == models.MetricLight {
		return fmt.Sprintf("%.0f %s", v, unit)
	}
	return fmt.Sprintf("%.1f %s", v, unit)
}

// bar places v on a scale from half a band below Min to half a band above Max.
func bar(v float64, b evaluator.Band) string {
	span := b.Max - b.Min
	lo, hi := b.Min-span/2, b.Max+span/2
	pos := int((v - lo) / (hi - lo) * barCells)
	pos = min(max(pos, 0), barCells-1)

	okFrom := int(float64(barCells) / 4)
	okTo := barCells - okFrom
	var sb strings.Builder
	for i := 0; i < barCells; i++ {
		switch {
		case i == pos:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorLabel).Render("|"))
		case i >= okFrom && i < okTo:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorOk).Render("-"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(colorDim).Render("."))
		}
	}
	return sb.String()
}

func (t *Terminal) recommendation(rec models.Recommendation) string {
	tag := "AI"
	if rec.Source == models.SourceFallback {
		tag = "rules"
	}
	title := lipgloss.NewStyle().Bold(true).Render("Recommendation") +
		lipgloss.NewStyle().Foreground(colorDim).Render(" ("+tag+")")
	return lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(colorBorder).
		Width(t.width).
		Render(title + "\n" + rec.Text)
}

func (t *Terminal) footer(s models.Snapshot) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	parts := []string{
		fmt.Sprintf("readings %d", s.Readings),
		fmt.Sprintf("sensor errors %d", s.SensorErrors),
		fmt.Sprintf("advisor failures %d", s.AdvisorFailures),
		fmt.Sprintf("report failures %d", s.ReporterFailures),
	}
	if !s.StartedAt.IsZero() {
		parts = append(parts, "up "+t.now().Sub(s.StartedAt).Truncate(time.Second).String())
	}
	return dimS.Render(strings.Join(parts, " | "))
}
