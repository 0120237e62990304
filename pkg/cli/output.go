package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"mercator-hq/wiretap/pkg/traffic"
	"mercator-hq/wiretap/pkg/traffic/override"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatTable is a rounded ASCII table (default).
	FormatTable OutputFormat = "table"
	// FormatJSON is indented JSON output.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatTable, FormatJSON:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unsupported format %q (use table or json)", s))
	}
}

// Formatter renders control API results.
type Formatter interface {
	FormatRecords(w io.Writer, records []*traffic.RequestRecord) error
	FormatRule(w io.Writer, rule *override.Rule) error
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	default:
		return &TableFormatter{MaxURLWidth: 80}
	}
}

// TableFormatter renders results as ASCII tables.
type TableFormatter struct {
	// MaxURLWidth truncates long URLs. Zero disables truncation.
	MaxURLWidth int
}

// FormatRecords writes one row per record, newest first as stored.
func (f *TableFormatter) FormatRecords(w io.Writer, records []*traffic.RequestRecord) error {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Time", "Method", "Status", "Type", "URL"})

	failed := 0
	for _, r := range records {
		if r == nil {
			continue
		}
		if r.Error != "" {
			failed++
		}
		t.AppendRow(table.Row{
			r.Timestamp.Local().Format(time.TimeOnly),
			r.Method,
			statusLabel(r),
			string(r.Type),
			truncate(r.URL, f.MaxURLWidth),
		})
	}

	summary := fmt.Sprintf("%d records", len(records))
	if failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}
	t.AppendFooter(table.Row{"", "", "", "", summary})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// FormatRule writes the active override rule, or a notice when none is set.
func (f *TableFormatter) FormatRule(w io.Writer, rule *override.Rule) error {
	if rule == nil {
		_, err := fmt.Fprintln(w, "No override active")
		return err
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("Override %d (priority %d): %s", rule.ID, rule.Priority, rule.URLPrefix))
	t.AppendHeader(table.Row{"Header", "Value"})

	headers := append([]override.HeaderAction(nil), rule.Headers...)
	sort.SliceStable(headers, func(i, j int) bool { return headers[i].Name < headers[j].Name })
	for _, h := range headers {
		t.AppendRow(table.Row{h.Name, h.Value})
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatRecords writes records as a JSON array; an empty log is [].
func (f *JSONFormatter) FormatRecords(w io.Writer, records []*traffic.RequestRecord) error {
	if records == nil {
		records = []*traffic.RequestRecord{}
	}
	return f.encode(w, records)
}

// FormatRule writes the rule, or null when none is set.
func (f *JSONFormatter) FormatRule(w io.Writer, rule *override.Rule) error {
	return f.encode(w, rule)
}

func (f *JSONFormatter) encode(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

func statusLabel(r *traffic.RequestRecord) string {
	switch {
	case r.Error != "":
		return "ERR " + r.Error
	case r.Pending():
		return "pending"
	default:
		return strconv.Itoa(r.StatusCode)
	}
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
