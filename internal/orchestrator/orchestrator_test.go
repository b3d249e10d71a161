package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource holds one session with one deadline; HandleDeadline clears
// it and reports on the handled channel.
type fakeSource struct {
	mu        sync.Mutex
	sessionID uuid.UUID
	deadline  *time.Time
	handled   chan uuid.UUID
}

func newFakeSource() *fakeSource {
	return &fakeSource{sessionID: uuid.New(), handled: make(chan uuid.UUID, 8)}
}

func (f *fakeSource) setDeadline(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = &t
}

func (f *fakeSource) NextDeadline(_ context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deadline, nil
}

func (f *fakeSource) DueSessionIDs(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deadline != nil && !f.deadline.After(now) {
		return []uuid.UUID{f.sessionID}, nil
	}
	return nil, nil
}

func (f *fakeSource) HandleDeadline(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	f.deadline = nil
	f.mu.Unlock()
	f.handled <- sessionID
	return nil
}

func waitHandled(t *testing.T, src *fakeSource) uuid.UUID {
	t.Helper()
	select {
	case id := <-src.handled:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for deadline handling")
		return uuid.Nil
	}
}

func TestRunFiresDueDeadline(t *testing.T) {
	src := newFakeSource()
	src.setDeadline(time.Now().Add(-time.Second))

	o := New(clockwork.NewRealClock(), NamedSource{Name: "fake", Source: src})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	assert.Equal(t, src.sessionID, waitHandled(t, src))

	cancel()
	require.NoError(t, <-done)
}

func TestRunSleepsUntilDeadline(t *testing.T) {
	src := newFakeSource()
	src.setDeadline(time.Now().Add(50 * time.Millisecond))

	o := New(clockwork.NewRealClock(), NamedSource{Name: "fake", Source: src})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go o.Run(ctx)

	assert.Equal(t, src.sessionID, waitHandled(t, src))
}

func TestWakeTriggersRescan(t *testing.T) {
	src := newFakeSource()

	o := New(clockwork.NewRealClock(), NamedSource{Name: "fake", Source: src})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go o.Run(ctx)

	// No deadline yet: the scheduler is in its idle poll. A mutation
	// lands a past-due deadline and nudges it awake.
	time.Sleep(50 * time.Millisecond)
	src.setDeadline(time.Now().Add(-time.Second))
	o.Wake()

	assert.Equal(t, src.sessionID, waitHandled(t, src))
}

func TestWakeNeverBlocks(t *testing.T) {
	o := New(clockwork.NewRealClock())
	for i := 0; i < 10; i++ {
		o.Wake()
	}
}

func TestEarliestDeadlineAcrossSources(t *testing.T) {
	a := newFakeSource()
	b := newFakeSource()
	soon := time.Now().Add(time.Minute)
	later := soon.Add(time.Hour)
	a.setDeadline(later)
	b.setDeadline(soon)

	o := New(clockwork.NewRealClock(),
		NamedSource{Name: "a", Source: a},
		NamedSource{Name: "b", Source: b},
	)

	got, err := o.earliestDeadline(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, soon, *got)
}
