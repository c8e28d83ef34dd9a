package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
)

// Action is one task change requested by the assistant.
type Action struct {
	Op           string  `json:"op"`
	ID           string  `json:"id,omitempty"`
	Title        *string `json:"title,omitempty"`
	NextAction   *string `json:"next_action,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	Days         int     `json:"days,omitempty"`
	CanDoAnytime *bool   `json:"can_do_anytime,omitempty"`
	ProjectID    *string `json:"project_id,omitempty"`
}

type ActionResult struct {
	Action Action      `json:"action"`
	Task   *model.Task `json:"task,omitempty"`
	Error  string      `json:"error,omitempty"`
}

var actionsBlock = regexp.MustCompile("(?s)```actions[ \t]*\\n(.*?)```")

// extractActions splits reply into the visible text and the requested
// actions. Each line of the block holds one action object or a JSON array
// of them. Lines that do not parse come back as results carrying the error.
func extractActions(reply string) (string, []Action, []ActionResult) {
	var (
		actions []Action
		invalid []ActionResult
	)
	for _, match := range actionsBlock.FindAllStringSubmatch(reply, -1) {
		for _, line := range strings.Split(match[1], "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			parsed, err := parseActionLine(line)
			if err != nil {
				invalid = append(invalid, ActionResult{Error: fmt.Sprintf("parse %q: %v", line, err)})
				continue
			}
			actions = append(actions, parsed...)
		}
	}

	text := strings.TrimSpace(actionsBlock.ReplaceAllString(reply, ""))
	return text, actions, invalid
}

func parseActionLine(line string) ([]Action, error) {
	if strings.HasPrefix(line, "[") {
		var actions []Action
		if err := json.Unmarshal([]byte(line), &actions); err != nil {
			return nil, err
		}
		return actions, nil
	}
	var action Action
	if err := json.Unmarshal([]byte(line), &action); err != nil {
		return nil, err
	}
	return []Action{action}, nil
}

func (s *Service) apply(ctx context.Context, action Action, today string) (*model.Task, error) {
	op := strings.ToLower(strings.TrimSpace(action.Op))
	if op != "create" && strings.TrimSpace(action.ID) == "" {
		return nil, fmt.Errorf("%s: id is required", op)
	}

	var (
		task model.Task
		err  error
	)
	switch op {
	case "create":
		input := db.TaskInput{
			Title:      model.StringValue(action.Title),
			NextAction: action.NextAction,
			DueDate:    action.DueDate,
			ProjectID:  action.ProjectID,
		}
		if action.CanDoAnytime != nil {
			input.CanDoAnytime = *action.CanDoAnytime
		}
		task, err = s.store.CreateTask(ctx, input)
	case "complete":
		task, err = s.store.CompleteTask(ctx, action.ID)
	case "uncomplete":
		task, err = s.store.UncompleteTask(ctx, action.ID)
	case "clarify":
		task, err = s.store.ClarifyTask(ctx, action.ID, model.StringValue(action.NextAction), action.ProjectID)
	case "postpone":
		days := action.Days
		if days == 0 {
			days = 1
		}
		task, err = s.store.PostponeTask(ctx, action.ID, days, today)
	case "update":
		task, err = s.store.UpdateTask(ctx, action.ID, db.TaskPatch{
			Title:        action.Title,
			NextAction:   action.NextAction,
			DueDate:      action.DueDate,
			CanDoAnytime: action.CanDoAnytime,
			ProjectID:    action.ProjectID,
		})
	case "delete":
		return nil, s.store.DeleteTask(ctx, action.ID)
	default:
		return nil, fmt.Errorf("unknown op %q", action.Op)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}
