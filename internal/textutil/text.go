package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeOptions toggles the optional steps of NormalizeText.
type NormalizeOptions struct {
	KeepNewlines  bool
	RemoveAccents bool
	Lowercase     bool
}

// NormalizeText strips markup, standardises whitespace, applies NFKC and then
// the optional accent removal and lowercasing steps.
func NormalizeText(text string, opts NormalizeOptions) string {
	if text == "" {
		return ""
	}
	out := StripHTML(text, opts.KeepNewlines)
	out = StandardizeWhitespace(out, opts.KeepNewlines)
	out = norm.NFKC.String(out)
	if opts.RemoveAccents {
		out = RemoveAccents(out)
	}
	if opts.Lowercase {
		out = strings.ToLower(out)
	}
	return out
}

var zeroWidth = map[rune]struct{}{
	'\u200b': {},
	'\u200c': {},
	'\u200d': {},
	'\u2060': {},
	'\ufeff': {},
}

// StandardizeWhitespace folds exotic spaces into a single ASCII space, drops
// zero-width characters and trims the result. Line breaks survive when
// keepNewlines is set.
func StandardizeWhitespace(text string, keepNewlines bool) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	pendingNewlines := 0
	flush := func() {
		if b.Len() == 0 {
			pendingSpace = false
			pendingNewlines = 0
			return
		}
		if pendingNewlines > 0 {
			if pendingNewlines > 2 {
				pendingNewlines = 2
			}
			b.WriteString(strings.Repeat("\n", pendingNewlines))
		} else if pendingSpace {
			b.WriteByte(' ')
		}
		pendingSpace = false
		pendingNewlines = 0
	}

	for _, r := range text {
		if _, ok := zeroWidth[r]; ok {
			continue
		}
		if r == '\n' || r == '\r' {
			if keepNewlines {
				pendingNewlines++
			} else {
				pendingSpace = true
			}
			continue
		}
		if unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) {
			pendingSpace = true
			continue
		}
		flush()
		b.WriteRune(r)
	}
	return b.String()
}

var blockElements = map[string]struct{}{
	"br": {}, "p": {}, "div": {}, "li": {}, "tr": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

// StripHTML returns the text content of an HTML fragment. Script and style
// bodies are dropped and entities are unescaped. With keepLinebreaks, block
// level elements are rendered as newlines.
func StripHTML(text string, keepLinebreaks bool) string {
	if !strings.ContainsAny(text, "<&") {
		return text
	}
	tokenizer := html.NewTokenizer(strings.NewReader(text))
	var b strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			if skip == 0 {
				b.Write(tokenizer.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
				continue
			}
			if _, ok := blockElements[tag]; ok {
				if keepLinebreaks {
					b.WriteByte('\n')
				} else {
					b.WriteByte(' ')
				}
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
		}
	}
}

// RemoveAccents decomposes the text and drops combining marks.
func RemoveAccents(text string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ChildScopePattern returns a LIKE pattern, to be used with ESCAPE '!', that
// matches every scope nested under scope.
func ChildScopePattern(scope string) string {
	return likeEscaper.Replace(scope) + ":%"
}
