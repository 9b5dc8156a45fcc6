// Package ui renders CLI output for certification runs: verdict lines,
// key-value evidence blocks, and cycle tables.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ANSI-256 palette, readable on dark terminals.
var (
	accent = lipgloss.Color("111")
	green  = lipgloss.Color("78")
	red    = lipgloss.Color("203")
	amber  = lipgloss.Color("215")
	dim    = lipgloss.Color("245")
	border = lipgloss.Color("240")
)

var (
	AccentStyle  = lipgloss.NewStyle().Foreground(accent)
	SuccessStyle = lipgloss.NewStyle().Foreground(green)
	ErrorStyle   = lipgloss.NewStyle().Foreground(red)
	WarnStyle    = lipgloss.NewStyle().Foreground(amber)
	MutedStyle   = lipgloss.NewStyle().Foreground(dim)
	BoldStyle    = lipgloss.NewStyle().Bold(true)
)

func Accent(s string) string { return AccentStyle.Render(s) }
func Bold(s string) string   { return BoldStyle.Render(s) }
func Muted(s string) string  { return MutedStyle.Render(s) }

// PassFail renders the verdict word for a certification outcome.
func PassFail(pass bool) string {
	if pass {
		return SuccessStyle.Render("PASS")
	}
	return ErrorStyle.Render("FAIL")
}

// Bool renders a verdict dimension as colored true/false.
func Bool(v bool) string {
	if v {
		return SuccessStyle.Render("true")
	}
	return ErrorStyle.Render("false")
}

// Single-line message helpers, no trailing newline.

func SuccessMsg(format string, a ...any) string {
	return SuccessStyle.Render("✓") + " " + fmt.Sprintf(format, a...)
}

func WarnMsg(format string, a ...any) string {
	return WarnStyle.Render("!") + " " + fmt.Sprintf(format, a...)
}

func ErrorMsg(format string, a ...any) string {
	return ErrorStyle.Render("✗") + " " + fmt.Sprintf(format, a...)
}

func InfoMsg(format string, a ...any) string {
	return AccentStyle.Render("●") + " " + fmt.Sprintf(format, a...)
}

// Pair is one labeled value in a KeyValues block; construct with KV.
type Pair struct {
	key   string
	value string
}

func KV(key, value string) Pair {
	return Pair{key: key, value: value}
}

// KeyValues renders the pairs as aligned "key: value" lines, one per pair,
// with a trailing newline.
func KeyValues(indent string, pairs ...Pair) string {
	width := 0
	for _, p := range pairs {
		if n := len(p.key); n > width {
			width = n
		}
	}

	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(indent)
		b.WriteString(MutedStyle.Render(p.key + ":"))
		b.WriteString(strings.Repeat(" ", width-len(p.key)+1))
		b.WriteString(p.value)
		b.WriteByte('\n')
	}
	return b.String()
}

// Table renders headers and rows with rounded borders.
func Table(headers []string, rows [][]string) string {
	head := lipgloss.NewStyle().Foreground(accent).Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(border)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
