// Package output provides terminal output utilities for camwatch.
//
// This package includes:
//   - Table rendering for the event log, per-device status and camera nodes
//   - One-line payload formatting for the live console view
//   - Spinners for daemon start and stop
//
// Tables use box-drawing rules and ANSI colour codes, and colour is only
// emitted when stdout is a terminal and NO_COLOR is unset.
package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/camwatch/internal/emitter"
	"github.com/blackwell-systems/camwatch/internal/store"
)

// ANSI color codes for occupancy status
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
)

// IsColorEnabled returns true if ANSI color codes should be emitted.
// It checks that os.Stdout is a TTY and that the NO_COLOR env var is not set.
func IsColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// colorize wraps text in the given ANSI color code if color is enabled,
// otherwise returns the plain text.
func colorize(color, text string) string {
	if IsColorEnabled() {
		return color + text + colorReset
	}
	return text
}

func statusColor(inUse bool) string {
	if inUse {
		return colorRed
	}
	return colorGreen
}

// formatStatus pads before colouring so ANSI codes don't break alignment.
func formatStatus(inUse bool, status string, width int) string {
	return colorize(statusColor(inUse), fmt.Sprintf("%-*s", width, status))
}

// formatRelativeTime renders t relative to now ("3 minutes ago").
func formatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	if now.Sub(t) < time.Second {
		return "just now"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// formatApp shows "Display Name (package)" or just the package when the
// two are equal.
func formatApp(name, pkg string) string {
	if name == "" || name == pkg {
		return pkg
	}
	return fmt.Sprintf("%s (%s)", name, pkg)
}

// RenderEventTable renders the event log, newest first as stored.
func RenderEventTable(events []*store.OccupancyEvent, now time.Time) string {
	if len(events) == 0 {
		return "No camera events recorded.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %-12s %-14s %-40s %-12s\n",
		"When", "Camera", "Status", "Application", "Source"))
	sb.WriteString(strings.Repeat("─", 98))
	sb.WriteString("\n")

	for _, e := range events {
		app := "—"
		if e.InUse {
			app = formatApp(e.DisplayName, e.Package)
		}
		source := e.Source
		if e.Reason != "" && e.Reason != "transition" {
			source += "/" + e.Reason
		}
		sb.WriteString(fmt.Sprintf("%-16s %-12s %s %-40s %-12s\n",
			truncate(formatRelativeTime(e.Timestamp, now), 16),
			truncate(e.DeviceLabel, 12),
			formatStatus(e.InUse, e.Status, 14),
			truncate(app, 40),
			source))
	}

	return sb.String()
}

// RenderStatusTable renders the last known state of each device.
func RenderStatusTable(latest []*store.OccupancyEvent, now time.Time) string {
	if len(latest) == 0 {
		return "No camera state recorded yet.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-12s %-14s %-40s %-16s\n", "Camera", "Status", "Application", "Since"))
	sb.WriteString(strings.Repeat("─", 84))
	sb.WriteString("\n")

	for _, e := range latest {
		app := "—"
		if e.InUse {
			app = formatApp(e.DisplayName, e.Package)
		}
		sb.WriteString(fmt.Sprintf("%-12s %s %-40s %-16s\n",
			truncate(e.DeviceLabel, 12),
			formatStatus(e.InUse, e.Status, 14),
			truncate(app, 40),
			formatRelativeTime(e.Timestamp, now)))
	}

	return sb.String()
}

// DeviceRow describes a camera node for the devices listing.
type DeviceRow struct {
	ID      string
	Label   string
	Path    string
	Holders []string
}

// RenderDeviceTable renders camera nodes and their current holders.
func RenderDeviceTable(rows []DeviceRow) string {
	if len(rows) == 0 {
		return "No camera devices found.\n"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-4s %-12s %-16s %-8s %s\n", "ID", "Camera", "Node", "State", "Held by"))
	sb.WriteString(strings.Repeat("─", 64))
	sb.WriteString("\n")

	for _, r := range rows {
		inUse := len(r.Holders) > 0
		state := "free"
		holders := "—"
		if inUse {
			state = "busy"
			holders = strings.Join(r.Holders, ", ")
		}
		sb.WriteString(fmt.Sprintf("%-4s %-12s %-16s %s %s\n",
			r.ID,
			truncate(r.Label, 12),
			truncate(r.Path, 16),
			formatStatus(inUse, state, 8),
			holders))
	}

	return sb.String()
}

// FormatPayload renders one payload as a console line.
// Example: 14:03:11  Front       Camera in use   Zoom (us.zoom.Zoom) [op-signal]
func FormatPayload(p emitter.Payload) string {
	app := ""
	if p.InUse {
		app = formatApp(p.DisplayName, p.Package) + " "
	}
	tag := string(p.Source)
	if p.Reason == "handoff" || p.Reason == "reattribution" {
		tag += ", " + string(p.Reason)
	}
	return fmt.Sprintf("%s  %-10s  %s %s%s",
		p.Timestamp.Format("15:04:05"),
		truncate(p.DeviceLabel, 10),
		formatStatus(p.InUse, p.Status, 14),
		app,
		colorize(colorGray, "["+tag+"]"))
}

// FormatDaemonState renders a one-line daemon status.
func FormatDaemonState(pid int) string {
	if pid == 0 {
		return colorize(colorYellow, "not running")
	}
	return colorize(colorGreen, fmt.Sprintf("running (PID %d)", pid))
}

// truncate truncates a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
