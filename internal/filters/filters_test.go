package filters

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/alchemist/internal/completion"
	"github.com/aiox-platform/alchemist/internal/conversation"
)

type fakeCompleter struct {
	reply string
	err   error
	calls []completion.Options
	msgs  [][]conversation.Message
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []conversation.Message, opts completion.Options) (string, error) {
	f.calls = append(f.calls, opts)
	f.msgs = append(f.msgs, msgs)
	return f.reply, f.err
}

func TestDecode_FlatObject(t *testing.T) {
	set := Decode(`{"color_uFilter": "red", "size_uFilter": ["M", "L"], "sortPrice": "[10 TO 50]"}`)
	assert.Equal(t, Set{
		Color:      `"red"`,
		Size:       `("M" OR "L")`,
		PriceRange: "[10 TO 50]",
	}, set)
}

func TestDecode_DropsUnknownKeys(t *testing.T) {
	set := Decode(`{"color_uFilter": "red", "brand_uFilter": "acme", "color": "blue", "q": "dress"}`)
	assert.Equal(t, Set{Color: `"red"`}, set)
	for n := range set {
		assert.True(t, Known(n), "unexpected key %q", n)
	}
}

func TestDecode_PriceRangeValidation(t *testing.T) {
	tests := []struct {
		value string
		want  string
		ok    bool
	}{
		{"[10 TO 50]", "[10 TO 50]", true},
		{"[* TO 50]", "[* TO 50]", true},
		{"[ 49.99  TO * ]", "[49.99 TO *]", true},
		{"sortPrice:[0 TO 100]", "[0 TO 100]", true},
		{"under 50", "", false},
		{"[10 TO 50] OR color_uFilter:red", "", false},
		{"(10 TO 50)", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			set := Decode(`{"sortPrice": "` + tt.value + `"}`)
			got, ok := set[PriceRange]
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_ValuesCannotEscapeQuotes(t *testing.T) {
	set := Decode(`{"color_uFilter": "red\" OR type_uFilter:\"x"}`)
	require.Contains(t, set, Color)
	assert.Equal(t, 2, strings.Count(set[Color], `"`))
}

func TestDecode_EchoedFragmentsAndFilterWrapper(t *testing.T) {
	set := Decode(`{"filter": ["color_uFilter:\"Red\"", "sortPrice:[0 TO 40]", "nonsense"]}`)
	assert.Equal(t, Set{Color: `"Red"`, PriceRange: "[0 TO 40]"}, set)

	set = Decode(`{"filter": {"gender_uFilter": "women"}}`)
	assert.Equal(t, Set{Gender: `"women"`}, set)

	set = Decode(`{"filter": ["color_uFilter:red", "size_uFilter:M", "color_uFilter:blue"]}`)
	assert.Equal(t, Set{Color: `("red" OR "blue")`, Size: `"M"`}, set)
}

func TestDecode_BlankAndInvalid(t *testing.T) {
	assert.Empty(t, Decode(`{"color_uFilter": "", "size_uFilter": "  ", "fit_uFilter": []}`))
	assert.Empty(t, Decode(`not json`))
	assert.Empty(t, Decode(`["color_uFilter"]`))
	assert.Empty(t, Decode(`{"color_uFilter": {"nested": true}}`))
}

func TestSet_Encode(t *testing.T) {
	assert.Equal(t, "", Set{}.Encode())
	assert.Equal(t, "", Set(nil).Encode())

	set := Set{PriceRange: "[* TO 50]", Color: `"red"`, Size: `("M" OR "L")`}
	assert.Equal(t, `color_uFilter:"red" AND size_uFilter:("M" OR "L") AND sortPrice:[* TO 50]`, set.Encode())
}

func TestTranslator_ToEngineFilters(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"color_uFilter\": \"red\", \"sortPrice\": \"[* TO 50]\", \"brand\": \"x\"}\n```"}
	tr := NewTranslator(fc, TranslatorOptions{MaxTokens: 300})

	set, err := tr.ToEngineFilters(context.Background(), `{"color": "red", "price": "under 50"}`)
	require.NoError(t, err)
	assert.Equal(t, Set{Color: `"red"`, PriceRange: "[* TO 50]"}, set)

	require.Len(t, fc.calls, 1)
	assert.Equal(t, completion.PurposeFilterTranslate, fc.calls[0].Purpose)
	assert.Equal(t, 0.0, fc.calls[0].Temperature)
	assert.Equal(t, 300, fc.calls[0].MaxTokens)
	assert.Nil(t, fc.calls[0].Schema)

	prompt := fc.msgs[0][0].Content
	for _, n := range Vocabulary {
		assert.Contains(t, prompt, string(n))
	}
	assert.Contains(t, prompt, `{"color": "red", "price": "under 50"}`)
}

func TestTranslator_EmptyConstraintSkipsCompletion(t *testing.T) {
	fc := &fakeCompleter{}
	tr := NewTranslator(fc, TranslatorOptions{})
	set, err := tr.ToEngineFilters(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Empty(t, fc.calls)
}

func TestTranslator_FailOpenOnGarbage(t *testing.T) {
	fc := &fakeCompleter{reply: "I think you want red things."}
	tr := NewTranslator(fc, TranslatorOptions{})
	set, err := tr.ToEngineFilters(context.Background(), "red")
	require.NoError(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

func TestTranslator_GatewayErrorPropagates(t *testing.T) {
	upstream := &completion.GatewayError{Purpose: completion.PurposeFilterTranslate, StatusCode: 500, Err: errors.New("boom")}
	tr := NewTranslator(&fakeCompleter{err: upstream}, TranslatorOptions{})
	_, err := tr.ToEngineFilters(context.Background(), "red")

	var gwErr *completion.GatewayError
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, 500, gwErr.StatusCode)
}

func TestTranslator_StructuredUsesSchema(t *testing.T) {
	fc := &fakeCompleter{reply: `{"color_uFilter":"red","size_uFilter":"","sortPrice":""}`}
	tr := NewTranslator(fc, TranslatorOptions{Structured: true})
	set, err := tr.ToEngineFilters(context.Background(), "red")
	require.NoError(t, err)
	assert.Equal(t, Set{Color: `"red"`}, set)
	require.NotNil(t, fc.calls[0].Schema)
	assert.Equal(t, "engine_filters", fc.calls[0].Schema.Name)
}

func TestSchema_CoversVocabularyOnly(t *testing.T) {
	s := Schema()
	assert.Equal(t, false, s["additionalProperties"])

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, len(Vocabulary))
	for key := range props {
		assert.True(t, Known(Name(key)), "schema property %q outside vocabulary", key)
	}

	required, ok := s["required"].([]string)
	require.True(t, ok)
	assert.Len(t, required, len(Vocabulary))
}
