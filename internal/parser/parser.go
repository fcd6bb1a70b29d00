// Package parser pulls structured fragments out of free-form model output.
// Nothing here panics or returns partial garbage: a fragment is either found
// and well-formed, or the caller gets an empty value and a ParseError.
package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	quotedRe = regexp.MustCompile(`"([^"]*)"`)
	fencedRe = regexp.MustCompile("(?s)```(.*?)```")
)

// ParseError reports that no usable fragment of the requested kind was found.
type ParseError struct {
	Kind   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Kind, e.Reason)
}

// QuotedFragment returns the first double-quoted substring of text, or "".
func QuotedFragment(text string) string {
	m := quotedRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

// FencedBlocks returns the contents of every triple-backtick fenced block.
// A leading language tag such as "json" is stripped from each block.
func FencedBlocks(text string) []string {
	matches := fencedRe.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, stripLanguageTag(m[1]))
	}
	return blocks
}

func stripLanguageTag(block string) string {
	if nl := strings.IndexByte(block, '\n'); nl >= 0 {
		tag := strings.TrimSpace(block[:nl])
		if tag != "" && !strings.ContainsAny(tag, "{}[]\" ") {
			return block[nl+1:]
		}
	}

	// Inline tag: ```json{...}```
	trimmed := strings.TrimLeft(block, " \t")
	if i := strings.IndexFunc(trimmed, func(r rune) bool { return !unicode.IsLetter(r) }); i > 0 {
		rest := trimmed[i:]
		if next := strings.TrimSpace(rest); strings.HasPrefix(next, "{") || strings.HasPrefix(next, "[") {
			return rest
		}
	}
	return block
}

// JSONObject returns the first JSON object found in text: a fenced block
// holding an object wins, otherwise the outermost {...} span is tried.
func JSONObject(text string) (string, error) {
	for _, block := range FencedBlocks(text) {
		candidate := strings.TrimSpace(block)
		if isObject(candidate) {
			return candidate, nil
		}
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		candidate := text[start : end+1]
		if isObject(candidate) {
			return candidate, nil
		}
		return "", &ParseError{Kind: "json object", Reason: "malformed JSON"}
	}
	return "", &ParseError{Kind: "json object", Reason: "no object found"}
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

// ConstraintText extracts the filter description from a filter-probe reply.
// The probe asks for JSON, so an object is preferred. Several separate
// objects are merged into one. A bare quoted string is accepted only when the
// reply holds no braces at all. Returns "" when nothing usable is present.
func ConstraintText(text string) string {
	obj, err := JSONObject(text)
	if err != nil {
		if !strings.ContainsRune(text, '{') {
			return QuotedFragment(text)
		}
		obj = mergeObjects(balancedObjects(text))
	}
	if len(gjson.Parse(obj).Map()) == 0 {
		return ""
	}
	return obj
}

// balancedObjects returns every top-level {...} span of text that is valid
// JSON, skipping braces inside string literals.
func balancedObjects(text string) []string {
	var out []string
	depth, start := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"' && depth > 0:
			inString = !inString
		case inString:
		case c == '{':
			if depth == 0 {
				start = i
			}
			depth++
		case c == '}' && depth > 0:
			depth--
			if depth == 0 {
				if candidate := text[start : i+1]; isObject(candidate) {
					out = append(out, candidate)
				}
			}
		}
	}
	return out
}

func mergeObjects(objs []string) string {
	merged := "{}"
	for _, obj := range objs {
		gjson.Parse(obj).ForEach(func(key, value gjson.Result) bool {
			if next, err := sjson.SetRaw(merged, escapePath(key.String()), value.Raw); err == nil {
				merged = next
			}
			return true
		})
	}
	return merged
}

// escapePath makes a literal object key safe to use as an sjson path.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		if strings.ContainsRune(`\.*?|#@!:`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AutoSuggestions decodes the auto_suggestions list from the first fenced
// block of text, keeping at most max string entries.
func AutoSuggestions(text string, max int) ([]string, error) {
	blocks := FencedBlocks(text)
	if len(blocks) == 0 {
		return []string{}, &ParseError{Kind: "auto suggestions", Reason: "no fenced block"}
	}

	payload := strings.TrimSpace(blocks[0])
	if !gjson.Valid(payload) {
		return []string{}, &ParseError{Kind: "auto suggestions", Reason: "malformed JSON"}
	}

	list := gjson.Get(payload, "auto_suggestions")
	if !list.IsArray() {
		return []string{}, &ParseError{Kind: "auto suggestions", Reason: "auto_suggestions is not a list"}
	}

	out := []string{}
	for _, item := range list.Array() {
		if len(out) == max {
			break
		}
		if item.Type != gjson.String {
			continue
		}
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
