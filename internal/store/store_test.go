package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexaffect/internal/emotion"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testState() emotion.State {
	engine := emotion.NewEngine(nil, emotion.WithSeed(1))
	engine.Update(emotion.Mix{emotion.Excited: 0.9})
	engine.Update(emotion.Mix{emotion.Shy: 0.4})
	return engine.Snapshot()
}

func TestOpen_Health(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Health(context.Background()))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Save(ctx, "a", testState()))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Load(ctx, "a")
	assert.NoError(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	state := testState()

	require.NoError(t, s.Save(ctx, "session-1", state))

	got, err := s.Load(ctx, "session-1")
	require.NoError(t, err)
	for _, e := range emotion.All() {
		assert.InDelta(t, state.Current.Get(e), got.Current.Get(e), 1e-12, e.String())
	}
	require.Len(t, got.History, len(state.History))
	for i := range state.History {
		assert.Equal(t, state.History[i].Emotion, got.History[i].Emotion)
		assert.InDelta(t, state.History[i].Intensity, got.History[i].Intensity, 1e-12)
		assert.True(t, state.History[i].Time.Equal(got.History[i].Time))
	}
}

func TestSave_Upserts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "x", emotion.State{}))
	state := testState()
	require.NoError(t, s.Save(ctx, "x", state))

	got, err := s.Load(ctx, "x")
	require.NoError(t, err)
	assert.InDelta(t, state.Current.Get(emotion.Excited), got.Current.Get(emotion.Excited), 1e-12)

	ids, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, ids)
}

func TestLoad_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_CascadesLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "d", testState()))
	require.NoError(t, s.Log(ctx, LogEntry{ID: "p1", SessionID: "d", PrimaryEmotion: "happy", Intensity: 0.8, TextLength: 5, TotalDuration: 1.9}))

	require.NoError(t, s.Delete(ctx, "d"))
	_, err := s.Load(ctx, "d")
	assert.ErrorIs(t, err, ErrNotFound)

	entries, err := s.Recent(ctx, "d", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.NoError(t, s.Delete(ctx, "never-existed"))
}

func TestLog_RecentNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, "r", testState()))
	for i, id := range []string{"p1", "p2", "p3"} {
		require.NoError(t, s.Log(ctx, LogEntry{
			ID:             id,
			SessionID:      "r",
			PrimaryEmotion: "happy",
			Intensity:      0.5,
			TextLength:     i + 1,
			TotalDuration:  1,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := s.Recent(ctx, "r", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "p3", entries[0].ID)
	assert.Equal(t, "p2", entries[1].ID)
	assert.Equal(t, 3, entries[0].TextLength)
	assert.True(t, entries[0].CreatedAt.Equal(base.Add(2*time.Second)))
}

func TestLog_RequiresSession(t *testing.T) {
	s := openTestStore(t)
	err := s.Log(context.Background(), LogEntry{ID: "orphan", SessionID: "nope", PrimaryEmotion: "happy"})
	assert.Error(t, err)
}
