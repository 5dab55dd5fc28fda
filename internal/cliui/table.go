// Package cliui renders plain-text output for the sia client.
package cliui

import (
	"io"
	"strings"
)

type Column struct {
	Name       string
	MaxWidth   int
	AlignRight bool
}

func RenderTable(w io.Writer, cols []Column, rows [][]string) {
	if len(cols) == 0 {
		return
	}
	widths := computeWidths(cols, rows)
	for i, c := range cols {
		_, _ = io.WriteString(w, padCell(c.Name, widths[i], c.AlignRight))
		if i < len(cols)-1 {
			_, _ = io.WriteString(w, "  ")
		}
	}
	_, _ = io.WriteString(w, "\n")
	for i, c := range cols {
		_, _ = io.WriteString(w, strings.Repeat("-", maxInt(widths[i], len(c.Name))))
		if i < len(cols)-1 {
			_, _ = io.WriteString(w, "  ")
		}
	}
	_, _ = io.WriteString(w, "\n")
	for _, row := range rows {
		for i, c := range cols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cell = Truncate(cell, widths[i])
			_, _ = io.WriteString(w, padCell(cell, widths[i], c.AlignRight))
			if i < len(cols)-1 {
				_, _ = io.WriteString(w, "  ")
			}
		}
		_, _ = io.WriteString(w, "\n")
	}
}

func computeWidths(cols []Column, rows [][]string) []int {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = runeCount(c.Name)
	}
	for _, row := range rows {
		for i := range cols {
			if i >= len(row) {
				continue
			}
			widths[i] = maxInt(widths[i], runeCount(row[i]))
		}
	}
	for i := range cols {
		if cols[i].MaxWidth > 0 && widths[i] > cols[i].MaxWidth {
			widths[i] = cols[i].MaxWidth
		}
	}
	return widths
}

func padCell(s string, width int, right bool) string {
	n := runeCount(s)
	if n >= width {
		return s
	}
	pad := strings.Repeat(" ", width-n)
	if right {
		return pad + s
	}
	return s + pad
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
