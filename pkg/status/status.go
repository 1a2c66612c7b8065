package status

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/loykin/sqlmigrate/internal/migration"
	"gopkg.in/yaml.v3"
)

const (
	tagApplied = "APPLIED"
	tagPending = "PENDING"

	appliedAtLayout = "2006-01-02 15:04:05"
)

var (
	appliedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Green
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // Yellow
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))  // Gray
)

// Entry is the state of one discovered migration file.
type Entry struct {
	Name      string     `json:"name" yaml:"name"`
	Applied   bool       `json:"applied" yaml:"applied"`
	AppliedAt *time.Time `json:"applied_at,omitempty" yaml:"applied_at,omitempty"`
}

// Info lists every discovered migration in the order it is applied.
type Info struct {
	Dir     string  `json:"dir" yaml:"dir"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// FromEntries converts runner status entries.
func FromEntries(dir string, entries []migration.StatusEntry) Info {
	out := Info{Dir: dir, Entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		item := Entry{Name: e.Name, Applied: e.Applied}
		if e.Applied && !e.AppliedAt.IsZero() {
			at := e.AppliedAt
			item.AppliedAt = &at
		}
		out.Entries = append(out.Entries, item)
	}
	return out
}

// FromRunner collects status for dir.
func FromRunner(ctx context.Context, r *migration.Runner, dir string) (Info, error) {
	entries, err := r.Status(ctx, dir)
	if err != nil {
		return Info{}, err
	}
	return FromEntries(dir, entries), nil
}

// Counts returns how many entries are applied and pending.
func (i Info) Counts() (applied, pending int) {
	for _, e := range i.Entries {
		if e.Applied {
			applied++
		} else {
			pending++
		}
	}
	return applied, pending
}

// FormatHuman prints one line per file tagged APPLIED or PENDING, followed by
// a summary line.
func (i Info) FormatHuman(color bool) string {
	if len(i.Entries) == 0 {
		return "No migrations found.\n"
	}
	width := 0
	for _, e := range i.Entries {
		if len(e.Name) > width {
			width = len(e.Name)
		}
	}

	var b strings.Builder
	for _, e := range i.Entries {
		tag, style := tagPending, pendingStyle
		if e.Applied {
			tag, style = tagApplied, appliedStyle
		}
		if color {
			tag = style.Render(tag)
		}
		line := fmt.Sprintf("%s  %-*s", tag, width, e.Name)
		if e.AppliedAt != nil {
			at := e.AppliedAt.Format(appliedAtLayout)
			if color {
				at = dimStyle.Render(at)
			}
			line += "  " + at
		}
		b.WriteString(strings.TrimRight(line, " "))
		b.WriteByte('\n')
	}
	applied, pending := i.Counts()
	fmt.Fprintf(&b, "%d applied, %d pending\n", applied, pending)
	return b.String()
}

// FormatJSON renders the status as indented JSON.
func (i Info) FormatJSON() (string, error) {
	b, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode status: %w", err)
	}
	return string(b) + "\n", nil
}

// FormatYAML renders the status as YAML.
func (i Info) FormatYAML() (string, error) {
	b, err := yaml.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("failed to encode status: %w", err)
	}
	return string(b), nil
}

// Format renders the status in the named output format: text, json or yaml.
func (i Info) Format(output string, color bool) (string, error) {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "text":
		return i.FormatHuman(color), nil
	case "json":
		return i.FormatJSON()
	case "yaml", "yml":
		return i.FormatYAML()
	default:
		return "", fmt.Errorf("unsupported output format %q (valid: text, json, yaml)", output)
	}
}
