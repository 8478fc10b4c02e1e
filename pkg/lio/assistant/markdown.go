// Package assistant – markdown.go flattens model markdown into the plain
// text LINE renders. LINE has no markdown support, so structure is mapped
// onto plain conventions: headers get a ✨ prefix, lists use •, links are
// flattened to "text (url)", and emphasis markers are stripped.
package assistant

import (
	"regexp"
	"strings"
)

var (
	codeBlockPattern  = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\n?(.*?)```")
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	imagePattern      = regexp.MustCompile(`!\[([^]]*)\]\(([^)]*)\)`)
	linkPattern       = regexp.MustCompile(`\[([^]]*)\]\(([^)]*)\)`)
	headerPattern     = regexp.MustCompile(`(?m)^#+\s+(.*)$`)
	boldPattern       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	boldAltPattern    = regexp.MustCompile(`__([^_]+)__`)
	italicPattern     = regexp.MustCompile(`\*([^*\n]+)\*`)
	strikePattern     = regexp.MustCompile(`~~([^~]+)~~`)
	bulletPattern     = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
	orderedPattern    = regexp.MustCompile(`(?m)^\s*(\d+)[.)]\s+`)
	rulePattern       = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	quotePattern      = regexp.MustCompile(`(?m)^>\s*`)
	blankRunPattern   = regexp.MustCompile(`\n{3,}`)
)

// CleanMarkdown converts model markdown into LINE-friendly plain text.
func CleanMarkdown(text string) string {
	// Unwrap code fences first so their content survives the other passes.
	text = codeBlockPattern.ReplaceAllString(text, "$1")
	text = inlineCodePattern.ReplaceAllString(text, "$1")

	// Images before links: the pattern overlaps.
	text = imagePattern.ReplaceAllString(text, "🖼️ $1")
	text = linkPattern.ReplaceAllString(text, "$1 ($2)")

	text = headerPattern.ReplaceAllString(text, "✨ $1")

	text = boldPattern.ReplaceAllString(text, "$1")
	text = boldAltPattern.ReplaceAllString(text, "$1")
	text = strikePattern.ReplaceAllString(text, "$1")

	// Bullets before italics so "* item" is not eaten as emphasis.
	text = bulletPattern.ReplaceAllString(text, "• ")
	text = orderedPattern.ReplaceAllString(text, "$1. ")
	text = italicPattern.ReplaceAllString(text, "$1")

	text = rulePattern.ReplaceAllString(text, "")
	text = quotePattern.ReplaceAllString(text, "")

	text = blankRunPattern.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
