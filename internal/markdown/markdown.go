// Package markdown renders API responses as markdown fragments for LLM
// consumption.
package markdown

import (
	"fmt"
	"strings"
)

// Code wraps a string in inline code backticks.
func Code(s string) string {
	return "`" + s + "`"
}

// Bold wraps a string in double asterisks.
func Bold(s string) string {
	return "**" + s + "**"
}

// Heading returns a markdown heading of the given level.
func Heading(level int, text string) string {
	if level < 1 {
		level = 1
	}
	if level > 6 {
		level = 6
	}
	return strings.Repeat("#", level) + " " + text
}

// Table renders a markdown table with the given headers and rows.
// Cells are used verbatim; callers wrap values in Code where needed.
func Table(headers []string, rows [][]string) string {
	var sb strings.Builder

	sb.WriteString("|")
	for _, h := range headers {
		sb.WriteString(" " + h + " |")
	}
	sb.WriteString("\n|")
	for range headers {
		sb.WriteString("---|")
	}
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString("|")
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// Bullets renders a markdown bullet list.
func Bullets(items []string) string {
	var sb strings.Builder
	for _, item := range items {
		sb.WriteString("- " + item + "\n")
	}
	return sb.String()
}

// CodeBlock renders a fenced code block with an optional language tag.
func CodeBlock(lang, content string) string {
	return "```" + lang + "\n" + strings.TrimSuffix(content, "\n") + "\n```"
}

// KeyValue renders a bold key with an inline-code value, for bullet lists
// of attributes.
func KeyValue(key string, value any) string {
	return fmt.Sprintf("%s: %s", Bold(key), Code(fmt.Sprintf("%v", value)))
}
