package filters

import (
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/gjson"
)

// Set maps vocabulary names to engine-native fragment values, e.g.
// color_uFilter -> "red" (quoted) or sortPrice -> [10 TO 50].
type Set map[Name]string

var rangeRe = regexp.MustCompile(`^\[\s*(\*|\d+(?:\.\d+)?)\s+TO\s+(\*|\d+(?:\.\d+)?)\s*\]$`)

// Encode renders the set as a single engine filter expression, keys in
// lexical order. An empty set encodes to "".
func (s Set) Encode() string {
	if len(s) == 0 {
		return ""
	}
	names := make([]Name, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	slices.Sort(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s:%s", n, s[n]))
	}
	return strings.Join(parts, " AND ")
}

// Decode builds a Set from a JSON object keyed by filter name. Keys outside
// the vocabulary and values that cannot be expressed as a fragment are
// dropped. Two layouts are accepted: a flat object, or an object whose
// "filter" member holds either such an object or a list of "name:value"
// fragment strings.
func Decode(payload string) Set {
	set := Set{}
	if !gjson.Valid(payload) {
		return set
	}
	root := gjson.Parse(payload)
	if !root.IsObject() {
		return set
	}

	if inner := root.Get("filter"); inner.Exists() && len(root.Map()) == 1 {
		switch {
		case inner.IsObject():
			root = inner
		case inner.IsArray():
			var order []Name
			grouped := map[Name][]string{}
			for _, item := range inner.Array() {
				name, value, ok := strings.Cut(item.String(), ":")
				if !ok {
					continue
				}
				n := Name(strings.TrimSpace(name))
				if _, seen := grouped[n]; !seen {
					order = append(order, n)
				}
				grouped[n] = append(grouped[n], value)
			}
			for _, n := range order {
				set.add(n, grouped[n])
			}
			return set
		}
	}

	root.ForEach(func(key, value gjson.Result) bool {
		var values []string
		if value.IsArray() {
			for _, v := range value.Array() {
				values = append(values, v.String())
			}
		} else if value.Type == gjson.String || value.Type == gjson.Number {
			values = []string{value.String()}
		}
		set.add(Name(key.String()), values)
		return true
	})
	return set
}

func (s Set) add(n Name, values []string) {
	// Structured output fills every field; blanks mean "not constrained".
	if strings.TrimSpace(strings.Join(values, "")) == "" {
		return
	}
	if !Known(n) {
		slog.Warn("dropping filter outside vocabulary", "name", n)
		return
	}
	if fragment, ok := fragmentFor(n, values); ok {
		s[n] = fragment
		return
	}
	slog.Warn("dropping filter with unusable value", "name", n, "values", values)
}

func fragmentFor(n Name, values []string) (string, bool) {
	if n.IsRange() {
		if len(values) != 1 {
			return "", false
		}
		return rangeFragment(stripName(n, values[0]))
	}

	var cleaned []string
	for _, v := range values {
		if c := cleanValue(stripName(n, v)); c != "" && !slices.Contains(cleaned, c) {
			cleaned = append(cleaned, c)
		}
	}
	switch len(cleaned) {
	case 0:
		return "", false
	case 1:
		return quote(cleaned[0]), true
	}
	quoted := make([]string, len(cleaned))
	for i, c := range cleaned {
		quoted[i] = quote(c)
	}
	return "(" + strings.Join(quoted, " OR ") + ")", true
}

func rangeFragment(v string) (string, bool) {
	m := rangeRe.FindStringSubmatch(strings.TrimSpace(v))
	if m == nil {
		return "", false
	}
	return fmt.Sprintf("[%s TO %s]", m[1], m[2]), true
}

// stripName removes an echoed "name:" prefix from a value.
func stripName(n Name, v string) string {
	v = strings.TrimSpace(v)
	if rest, ok := strings.CutPrefix(v, string(n)+":"); ok {
		return strings.TrimSpace(rest)
	}
	return v
}

// cleanValue removes characters that would let a value escape its quotes.
func cleanValue(v string) string {
	v = strings.NewReplacer(`"`, "", `\`, "").Replace(v)
	return strings.TrimSpace(v)
}

func quote(v string) string {
	return `"` + v + `"`
}
