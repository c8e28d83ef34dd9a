// Package chat lets the user manage tasks by talking to an external AI CLI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
	"github.com/Joseda-hg/lazygtd/pkg/executil"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNoReply      = errors.New("assistant returned no reply")
)

// Store is the part of the repository the chat needs.
type Store interface {
	ListTasks(ctx context.Context, filter model.Filter) ([]model.Task, error)
	CreateTask(ctx context.Context, input db.TaskInput) (model.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch db.TaskPatch) (model.Task, error)
	CompleteTask(ctx context.Context, taskID string) (model.Task, error)
	UncompleteTask(ctx context.Context, taskID string) (model.Task, error)
	ClarifyTask(ctx context.Context, taskID, nextAction string, projectID *string) (model.Task, error)
	PostponeTask(ctx context.Context, taskID string, days int, today string) (model.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	AddChatMessage(ctx context.Context, role model.ChatRole, content string) (model.ChatMessage, error)
	ListChatMessages(ctx context.Context, limit int) ([]model.ChatMessage, error)
	ClearChat(ctx context.Context) error
}

type Options struct {
	Command string
	Args    []string
	Timeout time.Duration
	// History is how many earlier messages go into the prompt.
	History int
	Now     func() time.Time
}

type Service struct {
	store Store
	exec  executil.Executor
	opts  Options
	log   zerolog.Logger
}

// Reply is the stored assistant message plus the outcome of every action
// it asked for.
type Reply struct {
	Message model.ChatMessage `json:"message"`
	Actions []ActionResult    `json:"actions"`
}

func NewService(store Store, exec executil.Executor, opts Options, log zerolog.Logger) *Service {
	if opts.Command == "" {
		opts.Command = "claude"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: store, exec: exec, opts: opts, log: log}
}

// Send asks the assistant about message, applies the actions in its reply
// and records both turns, the reply with the actions block removed.
func (s *Service) Send(ctx context.Context, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	today := tabs.Today(s.opts.Now())
	history, err := s.store.ListChatMessages(ctx, s.opts.History)
	if err != nil {
		return Reply{}, err
	}
	tasks, err := s.store.ListTasks(ctx, model.Filter{})
	if err != nil {
		return Reply{}, err
	}
	prompt, err := renderPrompt(today, message, tasks, history)
	if err != nil {
		return Reply{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	start := time.Now()
	out, err := s.exec.Run(runCtx, s.opts.Command, expandArgs(s.opts.Args, prompt)...)
	if err != nil {
		return Reply{}, fmt.Errorf("%s: %w", s.opts.Command, err)
	}
	s.log.Debug().Str("command", s.opts.Command).Dur("took", time.Since(start)).Int("bytes", len(out)).Msg("assistant replied")

	stream := parseStream(out)
	if !stream.Parsed || stream.Text == "" {
		return Reply{}, ErrNoReply
	}
	if stream.IsError {
		return Reply{}, fmt.Errorf("%s: %s", s.opts.Command, stream.Text)
	}

	// Only turns that got an answer are kept, so a failed call leaves no
	// dangling user message for the next prompt.
	if _, err := s.store.AddChatMessage(ctx, model.RoleUser, message); err != nil {
		return Reply{}, err
	}

	text, actions, results := extractActions(stream.Text)
	for _, action := range actions {
		task, err := s.apply(ctx, action, today)
		result := ActionResult{Action: action, Task: task}
		if err != nil {
			s.log.Warn().Err(err).Str("op", action.Op).Str("id", action.ID).Msg("chat action failed")
			result.Error = err.Error()
		}
		results = append(results, result)
	}

	if text == "" {
		text = summarize(results)
	}
	stored, err := s.store.AddChatMessage(ctx, model.RoleAssistant, text)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Message: stored, Actions: results}, nil
}

func (s *Service) History(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	return s.store.ListChatMessages(ctx, limit)
}

func (s *Service) Clear(ctx context.Context) error {
	return s.store.ClearChat(ctx)
}

func summarize(results []ActionResult) string {
	applied, failed := 0, 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		} else {
			applied++
		}
	}
	if failed == 0 {
		return fmt.Sprintf("Applied %d change(s).", applied)
	}
	return fmt.Sprintf("Applied %d change(s), %d failed.", applied, failed)
}
