// Package assistant – segment.go splits a step's raw text into ordered
// text / voice / image segments. The scan is a small hand-written lexer
// with an explicit state machine rather than a regex, so malformed input
// has defined behavior: an unterminated tag turns the remainder into plain
// text, and a nested opening marker is literal content until the first
// matching close.
package assistant

import (
	"regexp"
	"strings"
)

// SegmentKind discriminates parsed segments.
type SegmentKind string

const (
	SegmentText  SegmentKind = "text"
	SegmentVoice SegmentKind = "voice"
	SegmentImage SegmentKind = "image"
)

// Segment is a typed slice of a step's text after tag parsing.
type Segment struct {
	Kind    SegmentKind
	Content string
}

const (
	openVoice  = "<voice>"
	closeVoice = "</voice>"
	openImage  = "<image>"
	closeImage = "</image>"
)

// htmlTagPattern matches HTML-like tags for the pre-scan strip.
var htmlTagPattern = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9-]*(?:\s[^<>]*)?/?>`)

// lexState tracks the scanner position relative to recognized tag spans.
type lexState int

const (
	stateOutside lexState = iota
	stateVoice
	stateImage
)

// stripUnknownTags removes every HTML-like tag except the two recognized
// markers. A bare "<" with no closing ">" is left untouched.
func stripUnknownTags(text string) string {
	return htmlTagPattern.ReplaceAllStringFunc(text, func(m string) string {
		switch m {
		case openVoice, closeVoice, openImage, closeImage:
			return m
		}
		return ""
	})
}

// ParseSegments splits raw step text into ordered segments. Text outside
// recognized spans is trimmed and dropped when empty; tagged spans keep
// their trimmed inner content with the markers removed.
func ParseSegments(raw string) []Segment {
	text := stripUnknownTags(raw)

	var (
		segs  []Segment
		state = stateOutside
		buf   strings.Builder
	)

	emitText := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			segs = append(segs, Segment{Kind: SegmentText, Content: s})
		}
		buf.Reset()
	}
	emitTagged := func(kind SegmentKind) {
		segs = append(segs, Segment{Kind: kind, Content: strings.TrimSpace(buf.String())})
		buf.Reset()
	}

	i := 0
	for i < len(text) {
		switch state {
		case stateOutside:
			if strings.HasPrefix(text[i:], openVoice) {
				emitText()
				state = stateVoice
				i += len(openVoice)
				continue
			}
			if strings.HasPrefix(text[i:], openImage) {
				emitText()
				state = stateImage
				i += len(openImage)
				continue
			}
		case stateVoice:
			if strings.HasPrefix(text[i:], closeVoice) {
				emitTagged(SegmentVoice)
				state = stateOutside
				i += len(closeVoice)
				continue
			}
		case stateImage:
			if strings.HasPrefix(text[i:], closeImage) {
				emitTagged(SegmentImage)
				state = stateOutside
				i += len(closeImage)
				continue
			}
		}
		buf.WriteByte(text[i])
		i++
	}

	// Unterminated tag: whatever accumulated inside the span is plain text.
	emitText()

	return segs
}

// Combined holds the per-kind merge of all segments across steps: one text
// block, one narration, and one prompt per image.
type Combined struct {
	Text   string
	Voice  string
	Images []string
}

// Combine parses every step and merges segments across steps: text segments
// are markdown-cleaned and joined with blank lines, voice segments are
// joined with single spaces, image segments stay one prompt per entry.
func Combine(steps []Step) Combined {
	var (
		texts  []string
		voices []string
		images []string
	)
	for _, step := range steps {
		for _, seg := range ParseSegments(step.Text) {
			switch seg.Kind {
			case SegmentText:
				if cleaned := CleanMarkdown(seg.Content); cleaned != "" {
					texts = append(texts, cleaned)
				}
			case SegmentVoice:
				if seg.Content != "" {
					voices = append(voices, seg.Content)
				}
			case SegmentImage:
				if seg.Content != "" {
					images = append(images, seg.Content)
				}
			}
		}
	}
	return Combined{
		Text:   strings.Join(texts, "\n\n"),
		Voice:  strings.Join(voices, " "),
		Images: images,
	}
}
