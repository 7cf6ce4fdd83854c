package formatters

import (
	"fmt"
	"strings"
)

// style renders the same report as plain text or markdown
type style struct {
	name     string
	markdown bool
}

var (
	textStyle     = style{name: "text"}
	markdownStyle = style{name: "markdown", markdown: true}
)

func (s style) title(b *strings.Builder, title string) {
	if s.markdown {
		fmt.Fprintf(b, "# %s\n\n", title)
		return
	}
	fmt.Fprintf(b, "=== %s ===\n\n", strings.ToUpper(title))
}

func (s style) section(b *strings.Builder, title string) {
	if s.markdown {
		fmt.Fprintf(b, "## %s\n\n", title)
		return
	}
	fmt.Fprintf(b, "=== %s ===\n", strings.ToUpper(title))
}

func (s style) field(b *strings.Builder, label string, value any) {
	if s.markdown {
		fmt.Fprintf(b, "**%s:** %v  \n", label, value)
		return
	}
	fmt.Fprintf(b, "%s: %v\n", label, value)
}

func (s style) bullet(b *strings.Builder, format string, args ...any) {
	fmt.Fprintf(b, "- "+format+"\n", args...)
}

// table renders rows as a markdown table, or as aligned columns in text
func (s style) table(b *strings.Builder, header []string, rows [][]string) {
	if s.markdown {
		b.WriteString("| " + strings.Join(header, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
		for _, row := range rows {
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		b.WriteString("\n")
		return
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell))
		}
	}
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			fmt.Fprintf(b, "%-*s  ", widths[i], cell)
		}
		b.WriteString("\n")
	}
	writeRow(header)
	for _, row := range rows {
		writeRow(row)
	}
	b.WriteString("\n")
}

func (s style) end(b *strings.Builder) {
	b.WriteString("\n")
}
