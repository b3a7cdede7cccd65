// Package format converts model-generated markdown into the MarkdownV2
// dialect Telegram accepts, without ever corrupting fenced code.
package format

import (
	"regexp"
	"strconv"
	"strings"
)

const mdV2Specials = "_*[]()~`>#+-=|{}.!"

// Segment is one slice of input produced by SplitFenced. Code segments
// carry the literal fence contents and are never character-escaped.
type Segment struct {
	Text string
	Code bool
}

// SplitFenced splits text on triple-backtick fences. Segments alternate
// starting with prose. An unmatched trailing fence opens a code segment
// that closes at end of string, so the tail stays protected from escaping.
func SplitFenced(text string) []Segment {
	parts := strings.Split(text, "```")
	segs := make([]Segment, 0, len(parts))
	for i, p := range parts {
		segs = append(segs, Segment{Text: p, Code: i%2 == 1})
	}
	return segs
}

// QuoteMeta leaves '-' unescaped, which inside a character class would
// form a range ('+' through '='), so it must be escaped explicitly.
var mdSpecialRe = regexp.MustCompile("[" + strings.ReplaceAll(regexp.QuoteMeta(mdV2Specials), "-", `\-`) + "]")

func escapeSpecials(s string) string {
	return mdSpecialRe.ReplaceAllString(s, `\$0`)
}

// Escape prefixes every MarkdownV2-reserved character with a backslash.
// Fenced code segments are re-wrapped verbatim in single inline-code
// markers. Intended for literal, non-model text such as fixed prompts.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text) * 2)
	for _, seg := range SplitFenced(text) {
		if seg.Code {
			b.WriteByte('`')
			b.WriteString(seg.Text)
			b.WriteByte('`')
			continue
		}
		b.WriteString(escapeSpecials(seg.Text))
	}
	return b.String()
}

var (
	heading4Re = regexp.MustCompile(`(?m)^####\s+(.*)$`)
	heading3Re = regexp.MustCompile(`(?m)^###\s+(.*)$`)
	heading2Re = regexp.MustCompile(`(?m)^##\s+(.*)$`)
	heading1Re = regexp.MustCompile(`(?m)^#\s+(.*)$`)
	bulletRe   = regexp.MustCompile(`(?m)^\s*[-*]\s+(.*)$`)
	numberedRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+(.*)$`)

	inlineCodeRe = regexp.MustCompile("`([^`\n]+)`")
	linkRe       = regexp.MustCompile(`\[([^\]\n]+)\]\(([^)\n]+)\)`)
	boldRe       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	strikeRe     = regexp.MustCompile(`~~(.+?)~~`)
	italicRe     = regexp.MustCompile(`\*([^*\n]+)\*`)

	stashTokenRe = regexp.MustCompile("\x07([0-9]+)\x08")
)

// Per-kind delimiter placeholders. Non-printable so the escape pass
// leaves them alone; restored to MarkdownV2's own delimiters afterwards.
const (
	phBold   = "\x01"
	phStrike = "\x02"
	phItalic = "\x03"
)

// Refine converts model-generated markdown for Telegram display:
// headings become per-level emoji, list markers become bullets, and
// emphasis spans survive the reserved-character escape. The function is
// best-effort and total; unbalanced markup yields escaped plain text,
// never an error.
func Refine(markdown string) string {
	var b strings.Builder
	b.Grow(len(markdown) * 2)
	for _, seg := range SplitFenced(markdown) {
		if seg.Code {
			b.WriteByte('`')
			b.WriteString(seg.Text)
			b.WriteByte('`')
			continue
		}
		b.WriteString(refineProse(seg.Text))
	}
	return b.String()
}

func refineProse(s string) string {
	// Deepest heading level first so "####" is never half-matched by "#".
	s = heading4Re.ReplaceAllString(s, "🔶 $1")
	s = heading3Re.ReplaceAllString(s, "⭐ $1")
	s = heading2Re.ReplaceAllString(s, "🔷 $1")
	s = heading1Re.ReplaceAllString(s, "🟣 $1")
	s = bulletRe.ReplaceAllString(s, "🔹 $1")
	s = numberedRe.ReplaceAllString(s, "🔹 $1")

	s, stash := protectSpans(s)
	s = escapeSpecials(s)
	return restoreSpans(s, stash)
}

// protectSpans swaps emphasis delimiters for placeholder runes and lifts
// inline code and links out entirely, so the escape pass cannot touch
// code bodies or link URLs. This must run before escapeSpecials: escaping
// first would turn **bold** into \*\*bold\*\* and break renderability.
func protectSpans(s string) (string, []string) {
	var stash []string
	stashToken := func(rendered string) string {
		stash = append(stash, rendered)
		return "\x07" + strconv.Itoa(len(stash)-1) + "\x08"
	}

	s = inlineCodeRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := inlineCodeRe.FindStringSubmatch(m)
		return stashToken("`" + sub[1] + "`")
	})
	s = linkRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		return stashToken("[" + escapeSpecials(sub[1]) + "](" + escapeLinkURL(sub[2]) + ")")
	})
	s = boldRe.ReplaceAllString(s, phBold+"$1"+phBold)
	s = strikeRe.ReplaceAllString(s, phStrike+"$1"+phStrike)
	s = italicRe.ReplaceAllString(s, phItalic+"$1"+phItalic)
	return s, stash
}

var placeholderReplacer = strings.NewReplacer(
	phBold, "*",
	phStrike, "~",
	phItalic, "_",
)

func restoreSpans(s string, stash []string) string {
	s = placeholderReplacer.Replace(s)
	if len(stash) == 0 {
		return s
	}
	return stashTokenRe.ReplaceAllStringFunc(s, func(m string) string {
		idx, err := strconv.Atoi(m[1 : len(m)-1])
		if err != nil || idx < 0 || idx >= len(stash) {
			return m
		}
		return stash[idx]
	})
}

// Inside a MarkdownV2 link URL only ')' and '\' need escaping.
func escapeLinkURL(u string) string {
	u = strings.ReplaceAll(u, `\`, `\\`)
	return strings.ReplaceAll(u, `)`, `\)`)
}
