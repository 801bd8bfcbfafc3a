// Package output renders user-facing terminal output and debug diagnostics.
//
// [Printer] styles lines with lipgloss. Tests construct it with
// [NewPrinterWithWriter] and assert on the captured text.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// Printer writes styled output.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a Printer writing to stdout.
func NewPrinter() *Printer {
	return &Printer{out: os.Stdout}
}

// NewPrinterWithWriter creates a Printer writing to w.
func NewPrinterWithWriter(w io.Writer) *Printer {
	return &Printer{out: w}
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	p.line(infoStyle, format, args...)
}

// Success prints a success line.
func (p *Printer) Success(format string, args ...any) {
	p.line(successStyle, "✓ "+format, args...)
}

// Warn prints a warning line.
func (p *Printer) Warn(format string, args ...any) {
	p.line(warnStyle, "! "+format, args...)
}

// Error prints an error line.
func (p *Printer) Error(format string, args ...any) {
	p.line(errorStyle, "✗ "+format, args...)
}

// Header prints a section header.
func (p *Printer) Header(format string, args ...any) {
	p.line(headerStyle, format, args...)
}

// FieldErrors prints field-level validation messages in field order.
func (p *Printer) FieldErrors(fields []string, errs map[string]string) {
	for _, f := range fields {
		if msg, ok := errs[f]; ok {
			p.line(errorStyle, "  %s: %s", f, msg)
		}
	}
}

// Steps prints the wizard step list, marking the current step and dimming
// steps beyond the highest reached one.
func (p *Printer) Steps(titles []string, current, highest int) {
	for i, title := range titles {
		label := fmt.Sprintf("%d. %s", i+1, title)
		switch {
		case i == current:
			fmt.Fprintln(p.out, currentStyle.Render("→ "+label))
		case i > highest:
			fmt.Fprintln(p.out, dimStyle.Render("  "+label))
		default:
			fmt.Fprintln(p.out, "  "+label)
		}
	}
}

// Table prints rows as aligned columns under a header row.
func (p *Printer) Table(header []string, rows [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i := range header {
			if i < len(row) && lipgloss.Width(row[i]) > widths[i] {
				widths[i] = lipgloss.Width(row[i])
			}
		}
	}

	render := func(cells []string, style *lipgloss.Style) {
		parts := make([]string, len(header))
		for i := range header {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if style != nil {
			line = style.Render(line)
		}
		fmt.Fprintln(p.out, line)
	}

	render(header, &headerStyle)
	for _, row := range rows {
		render(row, nil)
	}
}

func (p *Printer) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(p.out, style.Render(fmt.Sprintf(format, args...)))
}
