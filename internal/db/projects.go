package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

func (s *Store) CreateProject(ctx context.Context, name string) (model.Project, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.Project{}, invalidf("project name is required")
	}

	now := s.now()
	project := model.Project{
		ID:        s.newID(),
		Name:      trimmed,
		Owner:     s.owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.DB.ExecContext(ctx,
		"INSERT INTO projects (id, name, owner, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		project.ID, project.Name, project.Owner, now.UnixNano(), now.UnixNano(),
	); err != nil {
		return model.Project{}, fmt.Errorf("insert project: %w", err)
	}

	s.publishProject(project)
	return project, nil
}

func (s *Store) GetProject(ctx context.Context, projectID string) (model.Project, error) {
	return getProject(ctx, s.DB, projectID)
}

func (s *Store) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := s.DB.QueryContext(ctx,
		"SELECT id, name, owner, created_at, updated_at FROM projects ORDER BY name COLLATE NOCASE, id",
	)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (s *Store) RenameProject(ctx context.Context, projectID, name string) (model.Project, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return model.Project{}, invalidf("project name is required")
	}

	var project model.Project
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		current.Name = trimmed
		current.UpdatedAt = s.now()
		if _, err := tx.ExecContext(ctx,
			"UPDATE projects SET name = ?, updated_at = ? WHERE id = ?",
			current.Name, current.UpdatedAt.UnixNano(), current.ID,
		); err != nil {
			return fmt.Errorf("rename project: %w", err)
		}
		project = current
		return nil
	})
	if err != nil {
		return model.Project{}, err
	}

	s.publishProject(project)
	return project, nil
}

// DeleteProject removes the project together with every task filed under it.
// It returns the ids of the deleted tasks.
func (s *Store) DeleteProject(ctx context.Context, projectID string) ([]string, error) {
	var deleted []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getProject(ctx, tx, projectID); err != nil {
			return err
		}

		tasks, err := queryTasks(ctx, tx, "SELECT "+taskColumns+" FROM tasks WHERE project_id = ?", projectID)
		if err != nil {
			return err
		}

		now := s.now()
		for _, task := range tasks {
			if err := addHistory(ctx, tx, task.ID, "deleted", formatDeletedDetails(task), now); err != nil {
				return err
			}
			deleted = append(deleted, task.ID)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", projectID); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, taskID := range deleted {
		s.publish(model.Change{Kind: model.ChangeTaskDeleted, ID: taskID})
	}
	s.publish(model.Change{Kind: model.ChangeProjectDeleted, ID: projectID})
	return deleted, nil
}

func (s *Store) publishProject(project model.Project) {
	snapshot := project
	s.publish(model.Change{Kind: model.ChangeProjectUpserted, ID: project.ID, Project: &snapshot})
}

func getProject(ctx context.Context, q querier, projectID string) (model.Project, error) {
	row := q.QueryRowContext(ctx, "SELECT id, name, owner, created_at, updated_at FROM projects WHERE id = ?", projectID)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return model.Project{}, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

func scanProject(row rowScanner) (model.Project, error) {
	var project model.Project
	var createdAt, updatedAt int64
	if err := row.Scan(&project.ID, &project.Name, &project.Owner, &createdAt, &updatedAt); err != nil {
		return model.Project{}, err
	}
	project.CreatedAt = time.Unix(0, createdAt)
	project.UpdatedAt = time.Unix(0, updatedAt)
	return project, nil
}
