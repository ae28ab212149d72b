package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexaffect/internal/animation"
	"github.com/normanking/cortexaffect/internal/bus"
	"github.com/normanking/cortexaffect/internal/emotion"
	"github.com/normanking/cortexaffect/internal/pipeline"
	"github.com/normanking/cortexaffect/internal/store"
)

type memoryStore struct {
	mu      sync.Mutex
	states  map[string]emotion.State
	logs    []store.LogEntry
	deleted []string
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: make(map[string]emotion.State)}
}

func (m *memoryStore) Save(ctx context.Context, id string, state emotion.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.states[id] = state
	return nil
}

func (m *memoryStore) Load(ctx context.Context, id string) (emotion.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return emotion.State{}, m.err
	}
	state, ok := m.states[id]
	if !ok {
		return emotion.State{}, store.ErrNotFound
	}
	return state, nil
}

func (m *memoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *memoryStore) Log(ctx context.Context, entry store.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, entry)
	return nil
}

type recordingSink struct {
	mu   sync.Mutex
	sent []*pipeline.Package
	err  error
}

func (r *recordingSink) Send(ctx context.Context, id string, pkg *pipeline.Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, pkg)
	return r.err
}

// gatedStore blocks the first Save (and every Load of gatedID) until release
// is closed.
type gatedStore struct {
	*memoryStore
	gatedID string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedStore(gatedID string) *gatedStore {
	return &gatedStore{
		memoryStore: newMemoryStore(),
		gatedID:     gatedID,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Save(ctx context.Context, id string, state emotion.State) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.memoryStore.Save(ctx, id, state)
}

func (g *gatedStore) Load(ctx context.Context, id string) (emotion.State, error) {
	if id == g.gatedID {
		select {
		case <-g.entered:
		default:
			close(g.entered)
		}
		<-g.release
	}
	return g.memoryStore.Load(ctx, id)
}

func fixedClock() func() time.Time {
	t := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func TestRespond_NoChangeUsesConfiguredTransition(t *testing.T) {
	m := NewManager(nil, nil, nil)
	ctx := context.Background()

	pkg, err := m.Respond(ctx, "s1", "hello there", nil)
	require.NoError(t, err)

	assert.Equal(t, "happy", pkg.Metadata.PrimaryEmotion)
	assert.InDelta(t, animation.DefaultConfig().TransitionTime, pkg.Timing.EmotionTransition, 1e-12)
	assert.NotEmpty(t, pkg.Phonemes)
}

func TestRespond_PrimaryChangeUsesTimer(t *testing.T) {
	m := NewManager(nil, nil, nil)
	ctx := context.Background()

	detected := map[string]float64{"shy": 0.8, "unknown": 1}
	pkg, err := m.Respond(ctx, "s1", "um, hi", detected)
	require.NoError(t, err)

	reference := emotion.NewEngine(nil)
	reference.Update(emotion.ParseMix(detected))
	primary, _ := reference.Primary()
	require.Equal(t, emotion.Shy, primary)
	want := animation.NewTimer(animation.BaseTransition).Timing(reference, emotion.Happy, emotion.Shy)

	assert.Equal(t, "shy", pkg.Metadata.PrimaryEmotion)
	assert.InDelta(t, want, pkg.Timing.EmotionTransition, 1e-12)
	assert.InDelta(t, want, pkg.Sequence.Keyframes[1].Timestamp, 1e-12)

	s, ok := m.Get("s1")
	require.True(t, ok)
	assert.Equal(t, 1, s.Turns())
	assert.Equal(t, emotion.Shy, s.Summary().Primary)
}

func TestRespond_MixRespectsThreshold(t *testing.T) {
	m := NewManager(nil, nil, nil, WithMixThreshold(0.6))
	ctx := context.Background()

	pkg, err := m.Respond(ctx, "s", "ok", nil)
	require.NoError(t, err)

	for e, level := range pkg.Metadata.EmotionMix {
		assert.GreaterOrEqual(t, level, 0.6, e.String())
	}
	assert.Contains(t, pkg.Metadata.EmotionMix, emotion.Happy)
}

func TestRespond_PersistsAndDelivers(t *testing.T) {
	st := newMemoryStore()
	sink := &recordingSink{}
	m := NewManager(nil, nil, nil, WithStore(st), WithSink(sink))
	ctx := context.Background()

	pkg, err := m.Respond(ctx, "s", "hi", map[string]float64{"curious": 0.9})
	require.NoError(t, err)

	require.Len(t, sink.sent, 1)
	assert.Same(t, pkg, sink.sent[0])

	require.Contains(t, st.states, "s")
	require.Len(t, st.logs, 1)
	assert.Equal(t, pkg.ID.String(), st.logs[0].ID)
	assert.Equal(t, "s", st.logs[0].SessionID)
	assert.Equal(t, 2, st.logs[0].TextLength)
}

func TestRespond_CollaboratorFailuresDoNotSurface(t *testing.T) {
	st := newMemoryStore()
	st.err = errors.New("disk full")
	sink := &recordingSink{err: errors.New("renderer gone")}
	m := NewManager(nil, nil, nil, WithStore(st), WithSink(sink))

	pkg, err := m.Respond(context.Background(), "s", "hi", map[string]float64{"happy": 0.5})
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Len(t, sink.sent, 1)
}

func TestSession_RestoresFromStore(t *testing.T) {
	st := newMemoryStore()
	ctx := context.Background()

	first := NewManager(nil, nil, nil, WithStore(st))
	_, err := first.Respond(ctx, "persisted", "hi", map[string]float64{"romantic": 1})
	require.NoError(t, err)
	s1, _ := first.Get("persisted")
	saved := s1.Snapshot()

	second := NewManager(nil, nil, nil, WithStore(st))
	s2, err := second.Session(ctx, "persisted")
	require.NoError(t, err)

	restored := s2.Snapshot()
	assert.Equal(t, saved.Current, restored.Current)
	assert.Len(t, restored.History, len(saved.History))
}

func TestSession_RealStoreSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	db, err := store.Open(path)
	require.NoError(t, err)
	m := NewManager(nil, nil, nil, WithStore(db))
	_, err = m.Respond(ctx, "alice", "I missed you", map[string]float64{"caring": 0.9})
	require.NoError(t, err)
	s, _ := m.Get("alice")
	want := s.Snapshot().Current
	require.NoError(t, db.Close())

	db, err = store.Open(path)
	require.NoError(t, err)
	defer db.Close()

	restarted := NewManager(nil, nil, nil, WithStore(db))
	s, err = restarted.Session(ctx, "alice")
	require.NoError(t, err)
	got := s.Snapshot().Current
	for _, e := range emotion.All() {
		assert.InDelta(t, want.Get(e), got.Get(e), 1e-12, e.String())
	}

	entries, err := db.Recent(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRespond_PublishesEvents(t *testing.T) {
	events := bus.NewEventBus()
	got := make(chan bus.Event, 8)
	events.SubscribeMultiple([]bus.EventType{
		bus.EventTypeSessionCreated,
		bus.EventTypeEmotionChanged,
		bus.EventTypePackageReady,
	}, func(e bus.Event) { got <- e })

	m := NewManager(nil, nil, nil, WithEventBus(events))
	_, err := m.Respond(context.Background(), "s", "hi", map[string]float64{"shy": 0.8})
	require.NoError(t, err)

	seen := map[bus.EventType]bus.Event{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 3 {
		select {
		case e := <-got:
			seen[e.Type] = e
		case <-timeout:
			t.Fatalf("received only %d event types", len(seen))
		}
	}

	changed := seen[bus.EventTypeEmotionChanged]
	assert.Equal(t, "s", changed.SessionID)
	assert.Equal(t, "happy", changed.Data["from"])
	assert.Equal(t, "shy", changed.Data["to"])
	assert.Equal(t, "shy", seen[bus.EventTypePackageReady].Data["primary_emotion"])
}

func TestReset(t *testing.T) {
	st := newMemoryStore()
	m := NewManager(nil, nil, nil, WithStore(st))
	ctx := context.Background()

	_, err := m.Respond(ctx, "s", "hey", map[string]float64{"mischievous": 1})
	require.NoError(t, err)
	require.NoError(t, m.Reset(ctx, "s"))

	s, _ := m.Get("s")
	summary := s.Summary()
	assert.Equal(t, emotion.Happy, summary.Primary)
	assert.InDelta(t, 0.7, summary.Intensity, 1e-12)
	assert.Equal(t, 0, s.Turns())
	assert.Len(t, summary.RecentChanges, 1)
	assert.Equal(t, emotion.DefaultProfiles().Baselines(), st.states["s"].Current)

	assert.ErrorIs(t, m.Reset(ctx, "missing"), ErrUnknownSession)
}

func TestDelete(t *testing.T) {
	st := newMemoryStore()
	m := NewManager(nil, nil, nil, WithStore(st))
	ctx := context.Background()

	_, err := m.Session(ctx, "gone")
	require.NoError(t, err)
	assert.Equal(t, []string{"gone"}, m.IDs())

	require.NoError(t, m.Delete(ctx, "gone"))
	assert.Empty(t, m.IDs())
	assert.Equal(t, []string{"gone"}, st.deleted)

	assert.ErrorIs(t, m.Delete(ctx, "gone"), ErrUnknownSession)
}

func TestSession_EmptyID(t *testing.T) {
	m := NewManager(nil, nil, nil)
	_, err := m.Session(context.Background(), "")
	assert.Error(t, err)
}

func TestSessions_AreIndependent(t *testing.T) {
	m := NewManager(nil, nil, nil)
	ctx := context.Background()

	_, err := m.Respond(ctx, "a", "hi", map[string]float64{"tsundere": 1})
	require.NoError(t, err)
	b, err := m.Session(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, emotion.Happy, b.Summary().Primary)
	assert.Equal(t, []string{"a", "b"}, m.IDs())
}

func TestRespond_ConcurrentTurnsAreSerialized(t *testing.T) {
	m := NewManager(nil, nil, nil, WithClock(fixedClock()))
	ctx := context.Background()
	s, err := m.Session(ctx, "busy")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Respond(ctx, "la la", map[string]float64{"playful": 0.3})
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, s.Turns())
	assert.Len(t, s.Snapshot().History, 20)
}

func TestRespond_SlowSaveDoesNotOverwriteNewerState(t *testing.T) {
	st := newGatedStore("")
	m := NewManager(nil, nil, nil, WithStore(st), WithClock(fixedClock()))
	ctx := context.Background()
	s, err := m.Session(ctx, "ordered")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Respond(ctx, "first", nil)
	}()
	<-st.entered

	go func() {
		defer wg.Done()
		s.Respond(ctx, "second", map[string]float64{"romantic": 1})
	}()
	require.Eventually(t, func() bool { return s.Turns() == 2 }, 5*time.Second, 5*time.Millisecond)

	close(st.release)
	wg.Wait()

	live := s.Snapshot()
	stored, err := st.memoryStore.Load(ctx, "ordered")
	require.NoError(t, err)
	assert.Len(t, stored.History, 2)
	assert.Equal(t, live.Current, stored.Current)
	assert.Len(t, st.logs, 2)
}

func TestReset_PersistsAfterPendingTurn(t *testing.T) {
	st := newGatedStore("")
	m := NewManager(nil, nil, nil, WithStore(st), WithClock(fixedClock()))
	ctx := context.Background()
	s, err := m.Session(ctx, "reset-order")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Respond(ctx, "grr", map[string]float64{"angry": 1})
	}()
	<-st.entered

	resetDone := make(chan struct{})
	go func() {
		defer close(resetDone)
		s.Reset(ctx)
	}()
	require.Eventually(t, func() bool { return s.Turns() == 0 }, 5*time.Second, 5*time.Millisecond)

	close(st.release)
	<-done
	<-resetDone

	stored, err := st.memoryStore.Load(ctx, "reset-order")
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot().Current, stored.Current)
}

func TestSession_CreationDoesNotBlockOtherSessions(t *testing.T) {
	st := newGatedStore("slow")
	m := NewManager(nil, nil, nil, WithStore(st))
	ctx := context.Background()

	fast, err := m.Session(ctx, "fast")
	require.NoError(t, err)

	slowDone := make(chan *Session)
	go func() {
		s, _ := m.Session(ctx, "slow")
		slowDone <- s
	}()
	<-st.entered

	got, ok := m.Get("fast")
	require.True(t, ok)
	assert.Same(t, fast, got)
	_, err = m.Session(ctx, "another")
	require.NoError(t, err)
	assert.Equal(t, []string{"another", "fast"}, m.IDs())

	close(st.release)
	slow := <-slowDone
	require.NotNil(t, slow)

	again, err := m.Session(ctx, "slow")
	require.NoError(t, err)
	assert.Same(t, slow, again)
}

func TestWithSeed_ReproducibleSuggestions(t *testing.T) {
	ctx := context.Background()
	a, err := NewManager(nil, nil, nil, WithSeed(7)).Session(ctx, "x")
	require.NoError(t, err)
	b, err := NewManager(nil, nil, nil, WithSeed(7)).Session(ctx, "x")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Suggest(), b.Suggest())
	}
}
