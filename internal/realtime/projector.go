package realtime

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

const DefaultReconnectDelay = 2 * time.Second

// Loader provides the full snapshot a Projector starts from.
type Loader interface {
	ListTasks(ctx context.Context, filter model.Filter) ([]model.Task, error)
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// Projector mirrors every task and project in memory. It loads a snapshot,
// then applies changes from the hub; when the subscription is lost it waits
// a fixed delay, resubscribes and reloads.
type Projector struct {
	hub    *Hub
	loader Loader
	delay  time.Duration
	log    zerolog.Logger

	mu       sync.RWMutex
	tasks    map[string]model.Task
	projects map[string]model.Project

	listenersMu sync.Mutex
	listeners   []func()

	ready     chan struct{}
	readyOnce sync.Once
}

func NewProjector(hub *Hub, loader Loader, delay time.Duration, log zerolog.Logger) *Projector {
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	return &Projector{
		hub:      hub,
		loader:   loader,
		delay:    delay,
		log:      log,
		tasks:    make(map[string]model.Task),
		projects: make(map[string]model.Project),
		ready:    make(chan struct{}),
	}
}

// Run blocks until ctx is cancelled.
func (p *Projector) Run(ctx context.Context) {
	for {
		// Subscribe before loading so nothing published in between is lost.
		sub := p.hub.Subscribe(DefaultBuffer)
		if err := p.reload(ctx); err != nil {
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			p.log.Error().Err(err).Msg("load snapshot")
		} else {
			p.consume(ctx, sub)
		}

		if ctx.Err() != nil {
			return
		}

		p.log.Debug().Dur("delay", p.delay).Msg("resubscribing")
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.delay):
		}
	}
}

// Ready is closed once the first snapshot has been loaded.
func (p *Projector) Ready() <-chan struct{} {
	return p.ready
}

// OnChange registers fn to run after every applied change or reload.
func (p *Projector) OnChange(fn func()) {
	p.listenersMu.Lock()
	defer p.listenersMu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Tasks returns a sorted copy of the mirrored tasks.
func (p *Projector) Tasks() []model.Task {
	p.mu.RLock()
	tasks := make([]model.Task, 0, len(p.tasks))
	for _, task := range p.tasks {
		tasks = append(tasks, task)
	}
	p.mu.RUnlock()

	tabs.Sort(tasks)
	return tasks
}

func (p *Projector) Task(id string) (model.Task, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	task, ok := p.tasks[id]
	return task, ok
}

// Projects returns the mirrored projects ordered by name.
func (p *Projector) Projects() []model.Project {
	p.mu.RLock()
	projects := make([]model.Project, 0, len(p.projects))
	for _, project := range p.projects {
		projects = append(projects, project)
	}
	p.mu.RUnlock()

	slices.SortFunc(projects, func(a, b model.Project) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return projects
}

func (p *Projector) reload(ctx context.Context) error {
	tasks, err := p.loader.ListTasks(ctx, model.Filter{})
	if err != nil {
		return err
	}
	projects, err := p.loader.ListProjects(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.tasks = make(map[string]model.Task, len(tasks))
	for _, task := range tasks {
		p.tasks[task.ID] = task
	}
	p.projects = make(map[string]model.Project, len(projects))
	for _, project := range projects {
		p.projects[project.ID] = project
	}
	p.mu.Unlock()

	p.readyOnce.Do(func() { close(p.ready) })
	p.notify()
	return nil
}

func (p *Projector) consume(ctx context.Context, sub *Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C():
			if !ok {
				p.log.Warn().Msg("subscription closed")
				return
			}
			p.Apply(change)
		}
	}
}

// Apply folds one change into the snapshot.
func (p *Projector) Apply(change model.Change) {
	p.mu.Lock()
	switch change.Kind {
	case model.ChangeTaskUpserted:
		if change.Task != nil {
			p.tasks[change.Task.ID] = *change.Task
		}
	case model.ChangeTaskDeleted:
		delete(p.tasks, change.ID)
	case model.ChangeProjectUpserted:
		if change.Project != nil {
			p.projects[change.Project.ID] = *change.Project
		}
	case model.ChangeProjectDeleted:
		delete(p.projects, change.ID)
	}
	p.mu.Unlock()

	p.notify()
}

func (p *Projector) notify() {
	p.listenersMu.Lock()
	listeners := slices.Clone(p.listeners)
	p.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}
