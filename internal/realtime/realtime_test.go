package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

type fakeLoader struct {
	mu       sync.Mutex
	tasks    []model.Task
	projects []model.Project
	loads    atomic.Int32
}

func (l *fakeLoader) ListTasks(context.Context, model.Filter) ([]model.Task, error) {
	l.loads.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Task(nil), l.tasks...), nil
}

func (l *fakeLoader) ListProjects(context.Context) ([]model.Project, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Project(nil), l.projects...), nil
}

func (l *fakeLoader) setTasks(tasks ...model.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = tasks
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	a := hub.Subscribe(4)
	b := hub.Subscribe(4)

	hub.Publish(model.Change{Kind: model.ChangeTaskDeleted, ID: "t1"})

	got := <-a.C()
	assert.Equal(t, "t1", got.ID)
	got = <-b.C()
	assert.Equal(t, "t1", got.ID)

	a.Close()
	a.Close()
	assert.Equal(t, 1, hub.Subscribers())
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	slow := hub.Subscribe(1)

	hub.Publish(model.Change{Kind: model.ChangeTaskDeleted, ID: "1"})
	hub.Publish(model.Change{Kind: model.ChangeTaskDeleted, ID: "2"})

	assert.Equal(t, 0, hub.Subscribers())

	first, ok := <-slow.C()
	require.True(t, ok)
	assert.Equal(t, "1", first.ID)
	_, ok = <-slow.C()
	assert.False(t, ok)
}

func TestProjectorAppliesChanges(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	loader := &fakeLoader{}
	loader.setTasks(model.Task{ID: "a", Title: "Existing", Status: model.StatusInbox})
	loader.projects = []model.Project{{ID: "p", Name: "Home"}}

	projector := NewProjector(hub, loader, 10*time.Millisecond, zerolog.Nop())
	var notified atomic.Int32
	projector.OnChange(func() { notified.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go projector.Run(ctx)

	select {
	case <-projector.Ready():
	case <-time.After(time.Second):
		t.Fatal("projector did not load snapshot")
	}

	require.Len(t, projector.Tasks(), 1)
	require.Len(t, projector.Projects(), 1)

	hub.Publish(model.Change{Kind: model.ChangeTaskUpserted, ID: "b", Task: &model.Task{ID: "b", Title: "New"}})
	hub.Publish(model.Change{Kind: model.ChangeTaskDeleted, ID: "a"})
	hub.Publish(model.Change{Kind: model.ChangeProjectDeleted, ID: "p"})

	require.Eventually(t, func() bool {
		_, hasA := projector.Task("a")
		_, hasB := projector.Task("b")
		return !hasA && hasB && len(projector.Projects()) == 0
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, notified.Load(), int32(4))
}

func TestProjectorResubscribesAfterDrop(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	loader := &fakeLoader{}
	loader.setTasks(model.Task{ID: "a"})

	projector := NewProjector(hub, loader, 10*time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go projector.Run(ctx)

	<-projector.Ready()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	// Simulate the feed going away while the store moved on.
	loader.setTasks(model.Task{ID: "a"}, model.Task{ID: "c"})
	hub.Close()

	require.Eventually(t, func() bool {
		_, hasC := projector.Task("c")
		return loader.loads.Load() >= 2 && hasC && hub.Subscribers() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestProjectorStopsOnCancel(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	projector := NewProjector(hub, &fakeLoader{}, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		projector.Run(ctx)
		close(done)
	}()

	<-projector.Ready()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}
