package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscript_StartsWithSystem(t *testing.T) {
	tr := NewTranscript("be helpful")
	require.Equal(t, 1, tr.Len())
	first := tr.Messages()[0]
	assert.Equal(t, RoleSystem, first.Role)
	assert.Equal(t, "be helpful", first.Content)
}

func TestTranscript_AppendKeepsOrder(t *testing.T) {
	tr := NewTranscript("sys")
	tr.Append(User("a"), Assistant("b"))
	tr.Append(User("c"))

	msgs := tr.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, []string{"sys", "a", "b", "c"}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content, msgs[3].Content})
	assert.Equal(t, User("c"), msgs[3])
}

func TestTranscript_WithDoesNotMutate(t *testing.T) {
	tr := NewTranscript("sys")
	tr.Append(User("red dress"), Assistant("Sure!"))

	probed := tr.With(User("What is my current query?"))
	assert.Len(t, probed, 4)
	assert.Equal(t, 3, tr.Len())

	// Writing into the returned slice must not leak into the transcript.
	probed[0].Content = "changed"
	assert.Equal(t, "sys", tr.Messages()[0].Content)

	// Appending after a probe must not overwrite the probe's backing array.
	tr.Append(User("next"))
	assert.Equal(t, "What is my current query?", probed[3].Content)
}

func TestTranscript_MessagesIsCopy(t *testing.T) {
	tr := NewTranscript("sys")
	msgs := tr.Messages()
	msgs[0].Content = "mutated"
	assert.Equal(t, "sys", tr.Messages()[0].Content)
}
