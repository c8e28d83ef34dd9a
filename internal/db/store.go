package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")

	// errUnchanged lets a mutation skip the write and history entry.
	errUnchanged = errors.New("unchanged")
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// Publisher receives a snapshot after every committed mutation.
type Publisher interface {
	Publish(change model.Change)
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	DB *sql.DB

	publisher Publisher
	now       func() time.Time
	newID     func() string
	owner     string
}

type Option func(*Store)

func WithPublisher(publisher Publisher) Option {
	return func(s *Store) { s.publisher = publisher }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithOwner sets the user recorded on newly created projects.
func WithOwner(owner string) Option {
	return func(s *Store) { s.owner = owner }
}

type TaskInput struct {
	Title        string
	NextAction   *string
	Status       model.Status
	DueDate      *string
	CanDoAnytime bool
	ProjectID    *string
}

// TaskPatch is a partial update. A nil field is left unchanged; an empty
// string clears NextAction, DueDate or ProjectID.
type TaskPatch struct {
	Title        *string
	NextAction   *string
	Status       *model.Status
	DueDate      *string
	CanDoAnytime *bool
	ProjectID    *string
}

func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{
		DB:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPublisher attaches the change feed after construction.
func (s *Store) SetPublisher(publisher Publisher) {
	s.publisher = publisher
}

const taskColumns = "id, title, next_action, status, due_date, can_do_anytime, project_id, postpone_count, completed_at, created_at, updated_at"

func (s *Store) CreateTask(ctx context.Context, input TaskInput) (model.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return model.Task{}, invalidf("title is required")
	}

	dueDate, err := normalizeDueDate(input.DueDate)
	if err != nil {
		return model.Task{}, err
	}

	nextAction := normalizeText(input.NextAction)
	status := input.Status
	if status == "" {
		status = model.StatusInbox
		if nextAction != nil {
			status = model.StatusActive
		}
	}
	if !status.Valid() {
		return model.Task{}, invalidf("invalid status %q", status)
	}
	if status == model.StatusActive && nextAction == nil {
		nextAction = &title
	}

	now := s.now()
	task := model.Task{
		ID:           s.newID(),
		Title:        title,
		NextAction:   nextAction,
		DueDate:      dueDate,
		CanDoAnytime: input.CanDoAnytime,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	task.SetStatus(status, now)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		projectID, err := resolveProjectID(ctx, tx, input.ProjectID)
		if err != nil {
			return err
		}
		task.ProjectID = projectID

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			taskArgs(task)...,
		); err != nil {
			return fmt.Errorf("insert task: %w", err)
		}

		return addHistory(ctx, tx, task.ID, "created", formatCreatedDetails(task), now)
	})
	if err != nil {
		return model.Task{}, err
	}

	s.publishTask(task)
	return task, nil
}

func (s *Store) GetTask(ctx context.Context, taskID string) (model.Task, error) {
	return getTask(ctx, s.DB, taskID)
}

// ListTasks returns matching tasks sorted with tabs.Compare.
func (s *Store) ListTasks(ctx context.Context, filter model.Filter) ([]model.Task, error) {
	var tab tabs.Tab
	if strings.TrimSpace(filter.Tab) != "" {
		parsed, err := tabs.Parse(filter.Tab)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", err.Error(), ErrInvalid)
		}
		if err := validateDate(filter.Today); err != nil {
			return nil, invalidf("today: %v", err)
		}
		tab = parsed
	}

	clauses := []string{}
	args := []any{}
	if query := strings.TrimSpace(filter.Query); query != "" {
		clauses = append(clauses, `(title LIKE ? ESCAPE '\' OR IFNULL(next_action, '') LIKE ? ESCAPE '\')`)
		pattern := "%" + likeEscaper.Replace(query) + "%"
		args = append(args, pattern, pattern)
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, status)
	}
	if projectID := strings.TrimSpace(filter.ProjectID); projectID != "" {
		clauses = append(clauses, "project_id = ?")
		args = append(args, projectID)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	tasks, err := queryTasks(ctx, s.DB, query, args...)
	if err != nil {
		return nil, err
	}

	if tab != "" {
		return tabs.Filter(tasks, tab, filter.Today), nil
	}
	tabs.Sort(tasks)
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) (model.Task, error) {
	return s.mutateTask(ctx, taskID, "updated", func(tx *sql.Tx, task *model.Task) error {
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				return invalidf("title is required")
			}
			task.Title = title
		}
		if patch.NextAction != nil {
			task.NextAction = normalizeText(patch.NextAction)
		}
		if patch.DueDate != nil {
			dueDate, err := normalizeDueDate(patch.DueDate)
			if err != nil {
				return err
			}
			task.DueDate = dueDate
		}
		if patch.CanDoAnytime != nil {
			task.CanDoAnytime = *patch.CanDoAnytime
		}
		if patch.ProjectID != nil {
			projectID, err := resolveProjectID(ctx, tx, patch.ProjectID)
			if err != nil {
				return err
			}
			task.ProjectID = projectID
		}
		if patch.Status != nil {
			if !patch.Status.Valid() {
				return invalidf("invalid status %q", *patch.Status)
			}
			task.SetStatus(*patch.Status, s.now())
		}
		return nil
	})
}

func (s *Store) CompleteTask(ctx context.Context, taskID string) (model.Task, error) {
	return s.mutateTask(ctx, taskID, "completed", func(_ *sql.Tx, task *model.Task) error {
		task.SetStatus(model.StatusDone, s.now())
		return nil
	})
}

// UncompleteTask reopens a done task as active, or as inbox when it was
// never clarified.
func (s *Store) UncompleteTask(ctx context.Context, taskID string) (model.Task, error) {
	return s.mutateTask(ctx, taskID, "uncompleted", func(_ *sql.Tx, task *model.Task) error {
		if task.Status != model.StatusDone {
			return errUnchanged
		}
		status := model.StatusInbox
		if task.HasNextAction() {
			status = model.StatusActive
		}
		task.SetStatus(status, s.now())
		return nil
	})
}

// ClarifyTask gives an inbox item its next action and optionally files it
// under a project. An empty projectID clears the project.
func (s *Store) ClarifyTask(ctx context.Context, taskID, nextAction string, projectID *string) (model.Task, error) {
	action := strings.TrimSpace(nextAction)
	if action == "" {
		return model.Task{}, invalidf("next action is required")
	}

	return s.mutateTask(ctx, taskID, "clarified", func(tx *sql.Tx, task *model.Task) error {
		task.NextAction = &action
		if projectID != nil {
			resolved, err := resolveProjectID(ctx, tx, projectID)
			if err != nil {
				return err
			}
			task.ProjectID = resolved
		}
		if task.Status == model.StatusInbox {
			task.SetStatus(model.StatusActive, s.now())
		}
		return nil
	})
}

// PostponeTask pushes the due date forward by days, counting from today when
// the task has no due date yet.
func (s *Store) PostponeTask(ctx context.Context, taskID string, days int, today string) (model.Task, error) {
	if days < 1 {
		return model.Task{}, invalidf("days must be positive")
	}
	if err := validateDate(today); err != nil {
		return model.Task{}, invalidf("today: %v", err)
	}

	return s.mutateTask(ctx, taskID, "postponed", func(_ *sql.Tx, task *model.Task) error {
		base := today
		if task.DueDate != nil {
			base = *task.DueDate
		}
		parsed, err := time.Parse(model.DateLayout, base)
		if err != nil {
			return invalidf("stored due date %q: %v", base, err)
		}
		next := parsed.AddDate(0, 0, days).Format(model.DateLayout)
		task.DueDate = &next
		task.PostponeCount++
		return nil
	})
}

func (s *Store) DeleteTask(ctx context.Context, taskID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		if err := addHistory(ctx, tx, taskID, "deleted", formatDeletedDetails(before), s.now()); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", taskID); err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(model.Change{Kind: model.ChangeTaskDeleted, ID: taskID})
	return nil
}

func (s *Store) ListHistory(ctx context.Context, taskID string) ([]model.HistoryEntry, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, task_id, event_type, details, created_at FROM task_history WHERE task_id = ? ORDER BY id",
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	history := []model.HistoryEntry{}
	for rows.Next() {
		var entry model.HistoryEntry
		var createdAt int64
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.EventType, &entry.Details, &createdAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = time.Unix(0, createdAt)
		history = append(history, entry)
	}
	return history, rows.Err()
}

func (s *Store) mutateTask(ctx context.Context, taskID, event string, apply func(tx *sql.Tx, task *model.Task) error) (model.Task, error) {
	var (
		after     model.Task
		unchanged bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before, err := getTask(ctx, tx, taskID)
		if err != nil {
			return err
		}

		after = before
		if err := apply(tx, &after); err != nil {
			if errors.Is(err, errUnchanged) {
				after, unchanged = before, true
			}
			return err
		}
		now := s.now()
		after.UpdatedAt = now

		if _, err := tx.ExecContext(ctx,
			`UPDATE tasks SET title = ?, next_action = ?, status = ?, due_date = ?, can_do_anytime = ?,
			project_id = ?, postpone_count = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
			after.Title, nullString(after.NextAction), string(after.Status), nullString(after.DueDate),
			after.CanDoAnytime, nullString(after.ProjectID), after.PostponeCount, nullTime(after.CompletedAt),
			after.UpdatedAt.UnixNano(), after.ID,
		); err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		return addHistory(ctx, tx, taskID, event, formatTaskDiff(event, before, after), now)
	})
	if unchanged {
		return after, nil
	}
	if err != nil {
		return model.Task{}, err
	}

	s.publishTask(after)
	return after, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *Store) publishTask(task model.Task) {
	snapshot := task
	s.publish(model.Change{Kind: model.ChangeTaskUpserted, ID: task.ID, Task: &snapshot})
}

func (s *Store) publish(change model.Change) {
	if s.publisher == nil {
		return
	}
	change.At = s.now()
	s.publisher.Publish(change)
}

func getTask(ctx context.Context, q querier, taskID string) (model.Task, error) {
	row := q.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", taskID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

func queryTasks(ctx context.Context, q querier, query string, args ...any) ([]model.Task, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var (
		task        model.Task
		status      string
		nextAction  sql.NullString
		dueDate     sql.NullString
		projectID   sql.NullString
		completedAt sql.NullInt64
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&task.ID, &task.Title, &nextAction, &status, &dueDate, &task.CanDoAnytime,
		&projectID, &task.PostponeCount, &completedAt, &createdAt, &updatedAt); err != nil {
		return model.Task{}, err
	}

	task.Status = model.Status(status)
	task.NextAction = fromNullString(nextAction)
	task.DueDate = fromNullString(dueDate)
	task.ProjectID = fromNullString(projectID)
	if completedAt.Valid {
		completed := time.Unix(0, completedAt.Int64)
		task.CompletedAt = &completed
	}
	task.CreatedAt = time.Unix(0, createdAt)
	task.UpdatedAt = time.Unix(0, updatedAt)
	return task, nil
}

func taskArgs(task model.Task) []any {
	return []any{
		task.ID, task.Title, nullString(task.NextAction), string(task.Status), nullString(task.DueDate),
		task.CanDoAnytime, nullString(task.ProjectID), task.PostponeCount, nullTime(task.CompletedAt),
		task.CreatedAt.UnixNano(), task.UpdatedAt.UnixNano(),
	}
}

func addHistory(ctx context.Context, q querier, taskID, eventType, details string, at time.Time) error {
	if _, err := q.ExecContext(ctx,
		"INSERT INTO task_history (task_id, event_type, details, created_at) VALUES (?, ?, ?, ?)",
		taskID, eventType, details, at.UnixNano(),
	); err != nil {
		return fmt.Errorf("add history: %w", err)
	}
	return nil
}

// resolveProjectID returns nil for a nil or blank id and rejects ids that do
// not name an existing project.
func resolveProjectID(ctx context.Context, q querier, projectID *string) (*string, error) {
	id := normalizeText(projectID)
	if id == nil {
		return nil, nil
	}
	if _, err := getProject(ctx, q, *id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, invalidf("unknown project %q", *id)
		}
		return nil, err
	}
	return id, nil
}

func normalizeText(value *string) *string {
	if value == nil {
		return nil
	}
	return model.StringPtr(*value)
}

func normalizeDueDate(value *string) (*string, error) {
	date := normalizeText(value)
	if date == nil {
		return nil, nil
	}
	if err := validateDate(*date); err != nil {
		return nil, invalidf("invalid due date %q", *date)
	}
	return date, nil
}

func validateDate(value string) error {
	parsed, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return err
	}
	if parsed.Format(model.DateLayout) != value {
		return fmt.Errorf("date %q is not in %s form", value, model.DateLayout)
	}
	return nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	result := value.String
	return &result
}

func nullTime(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: value.UnixNano(), Valid: true}
}
