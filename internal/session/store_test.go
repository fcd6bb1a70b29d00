package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/alchemist/internal/conversation"
	"github.com/aiox-platform/alchemist/internal/personalization"
)

type countingFacets struct {
	calls atomic.Int32
	delay time.Duration
	aff   personalization.Affinity
}

func (f *countingFacets) GetAffinityFacets(ctx context.Context, userID string) personalization.Affinity {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.aff
}

var testTemplates = Templates{Dialogue: "dialogue system.", AutoSuggest: "autosuggest system."}

func TestGetOrCreate_SameSessionOneFetch(t *testing.T) {
	facets := &countingFacets{aff: personalization.Affinity{Source: personalization.SourceLive, Facets: personalization.Facets{"color_uFilter": "red"}}}
	store := NewMemoryStore(facets, testTemplates)
	ctx := context.Background()

	first, err := store.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	second, err := store.GetOrCreate(ctx, "u1")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), facets.calls.Load())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, personalization.SourceLive, first.Personalization)
}

func TestGetOrCreate_ConcurrentFirstContact(t *testing.T) {
	facets := &countingFacets{delay: 20 * time.Millisecond, aff: personalization.Affinity{Source: personalization.SourceNone, Facets: personalization.Facets{}}}
	store := NewMemoryStore(facets, testTemplates)

	const n = 16
	sessions := make([]*Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := store.GetOrCreate(context.Background(), "u1")
			assert.NoError(t, err)
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), facets.calls.Load())
	for _, sess := range sessions {
		assert.Same(t, sessions[0], sess)
	}
}

func TestGetOrCreate_SeedsDialogueOnce(t *testing.T) {
	facets := &countingFacets{aff: personalization.Affinity{Source: personalization.SourceFallback, Facets: personalization.Facets{"size_uFilter": "M"}}}
	store := NewMemoryStore(facets, testTemplates)

	sess, err := store.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	_, err = store.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	snap := sess.Snapshot()
	require.Len(t, snap.Dialogue, 1)
	assert.Equal(t, conversation.RoleSystem, snap.Dialogue[0].Role)
	assert.Contains(t, snap.Dialogue[0].Content, "dialogue system.")
	assert.Contains(t, snap.Dialogue[0].Content, `"size_uFilter":"M"`)
	assert.Contains(t, snap.Dialogue[0].Content, "cached snapshot")

	require.Len(t, snap.AutoSuggest, 1)
	assert.Equal(t, "autosuggest system.", snap.AutoSuggest[0].Content)
}

func TestGetOrCreate_UsersAreIsolated(t *testing.T) {
	store := NewMemoryStore(&countingFacets{}, testTemplates)

	a, err := store.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	b, err := store.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)

	a.AppendDialogue(conversation.User("hello"))
	assert.Equal(t, 2, a.DialogueLen())
	assert.Equal(t, 1, b.DialogueLen())
}

func TestGetOrCreate_EmptyUserID(t *testing.T) {
	store := NewMemoryStore(&countingFacets{}, testTemplates)
	_, err := store.GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidUserID)
	assert.Zero(t, store.Len())
}

func TestGetOrCreate_CanceledCallerStillCreates(t *testing.T) {
	store := NewMemoryStore(&countingFacets{delay: 50 * time.Millisecond}, testTemplates)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.GetOrCreate(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Eventually(t, func() bool {
		_, ok := store.Get("u1")
		return ok
	}, time.Second, 5*time.Millisecond)

	sess, err := store.GetOrCreate(ctx, "u1")
	require.NoError(t, err, "an existing session is returned even to a canceled caller")
	got, _ := store.Get("u1")
	assert.Same(t, got, sess)
}

func TestGetOrCreate_RespectsCallerDeadline(t *testing.T) {
	facets := &countingFacets{delay: 500 * time.Millisecond}
	store := NewMemoryStore(facets, testTemplates)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := store.GetOrCreate(ctx, "u1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 250*time.Millisecond)

	// The slow fetch finishes in the background and is shared by later callers.
	sess, err := store.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, sess)
	assert.Equal(t, int32(1), facets.calls.Load())
}

func TestSession_DialogueProbeDoesNotMutate(t *testing.T) {
	store := NewMemoryStore(&countingFacets{}, testTemplates)
	sess, err := store.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	msgs := sess.Dialogue(conversation.User("what is my query?"))
	assert.Len(t, msgs, 2)
	assert.Equal(t, 1, sess.DialogueLen())
}

func TestSession_TurnLock(t *testing.T) {
	store := NewMemoryStore(&countingFacets{}, testTemplates)
	sess, err := store.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, sess.Acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, sess.Acquire(ctx), context.DeadlineExceeded)

	sess.Release()
	require.NoError(t, sess.Acquire(context.Background()))
	sess.Release()
}
