package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/comalice/pumpchart"
	"github.com/comalice/pumpchart/internal/alarm"
	"github.com/comalice/pumpchart/internal/bus"
	"github.com/comalice/pumpchart/internal/infusion"
)

var (
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorGray    = lipgloss.Color("#6272A4")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	headerStyle = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(colorGray)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	warnStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	orangeStyle = lipgloss.NewStyle().Foreground(colorOrange).Bold(true)
	critStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

// Trace column widths.
const (
	colTick  = 6
	colAlarm = 22
	colLevel = 6
	colMode  = 20
	colFlow  = 6
)

var modeNames = map[int32]string{
	infusion.ModeOff:               "off",
	infusion.ModeIdle:              "idle",
	infusion.ModeBasal:             "basal",
	infusion.ModeIntermittentBolus: "intermittent bolus",
	infusion.ModePatientBolus:      "patient bolus",
	infusion.ModePausedNoKVO:       "paused",
	infusion.ModePausedKVO:         "paused kvo",
	infusion.ModeManualPausedKVO:   "manual paused kvo",
}

// styledPad pads a styled string to the given visual width.
func styledPad(styled string, width int) string {
	if w := lipgloss.Width(styled); w < width {
		return styled + strings.Repeat(" ", width-w)
	}
	return styled
}

func levelStyle(level int32) lipgloss.Style {
	switch {
	case level >= 4:
		return critStyle
	case level == 3:
		return orangeStyle
	case level == 2:
		return warnStyle
	case level == 1:
		return okStyle
	default:
		return dimStyle
	}
}

func modeName(mode int32) string {
	if name, ok := modeNames[mode]; ok {
		return name
	}
	return fmt.Sprintf("mode %d", mode)
}

// infusionLeaves shortens the active infusion leaves for display.
func infusionLeaves(states []string) string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		s = strings.TrimPrefix(s, "Infusion_Manager.")
		s = strings.TrimPrefix(s, "THERAPY.")
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

// renderTrace formats one row per cycle.
func renderTrace(name string, cycles []bus.Cycle) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(name) + "\n")
	sb.WriteString(styledPad(headerStyle.Render("TICK"), colTick) +
		styledPad(headerStyle.Render("ALARM"), colAlarm) +
		styledPad(headerStyle.Render("LEVEL"), colLevel) +
		styledPad(headerStyle.Render("MODE"), colMode) +
		styledPad(headerStyle.Render("FLOW"), colFlow) +
		headerStyle.Render("INFUSION") + "\n")

	for _, c := range cycles {
		level := c.Alarm.HighestLevelAlarm
		cond := alarm.Condition(c.CurrentAlarm)
		condText := dimStyle.Render(cond.String())
		if cond != alarm.None {
			condText = levelStyle(level).Render(cond.String())
		}

		sb.WriteString(styledPad(dimStyle.Render(fmt.Sprint(c.Tick)), colTick))
		sb.WriteString(styledPad(condText, colAlarm))
		sb.WriteString(styledPad(levelStyle(level).Render(fmt.Sprint(level)), colLevel))
		sb.WriteString(styledPad(modeName(c.Infusion.CurrentSystemMode), colMode))
		sb.WriteString(styledPad(fmt.Sprint(c.Infusion.CommandedFlowRate), colFlow))
		sb.WriteString(dimStyle.Render(infusionLeaves(c.InfusionState)))
		for _, d := range c.Diagnostics {
			sb.WriteString("  " + warnStyle.Render(d))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// renderSummary reports the run's outcome on one line.
func renderSummary(s *session, err error) string {
	checked := fmt.Sprintf("%d cycles, %d checks", s.driver.Tick(), s.monitor.Checked())

	var violation *pumpchart.SafetyViolation
	switch {
	case errors.As(err, &violation):
		return critStyle.Render("VIOLATION ") + violation.Error() + dimStyle.Render(" ("+checked+")")
	case err != nil:
		return critStyle.Render("FAILED ") + err.Error()
	default:
		return okStyle.Render("OK ") + dimStyle.Render(checked)
	}
}
