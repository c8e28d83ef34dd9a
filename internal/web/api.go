package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

// taskView is a task as the API returns it, with its computed tab.
type taskView struct {
	model.Task
	Tab tabs.Tab `json:"tab"`
}

func (s *Server) view(task model.Task, today string) taskView {
	return taskView{Task: task, Tab: tabs.Classify(task, today)}
}

type createTaskRequest struct {
	Title        string       `json:"title"`
	NextAction   *string      `json:"nextAction"`
	Status       model.Status `json:"status"`
	DueDate      *string      `json:"dueDate"`
	CanDoAnytime bool         `json:"canDoAnytime"`
	ProjectID    *string      `json:"projectId"`
}

type updateTaskRequest struct {
	Title        *string       `json:"title"`
	NextAction   *string       `json:"nextAction"`
	Status       *model.Status `json:"status"`
	DueDate      *string       `json:"dueDate"`
	CanDoAnytime *bool         `json:"canDoAnytime"`
	ProjectID    *string       `json:"projectId"`
}

type clarifyRequest struct {
	NextAction string  `json:"nextAction"`
	ProjectID  *string `json:"projectId"`
}

type postponeRequest struct {
	Days int `json:"days"`
}

type projectRequest struct {
	Name string `json:"name"`
}

type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	query := r.URL.Query()
	filter := model.Filter{
		Query:     strings.TrimSpace(query.Get("q")),
		Status:    model.Status(strings.TrimSpace(query.Get("status"))),
		ProjectID: strings.TrimSpace(query.Get("project")),
		Tab:       strings.TrimSpace(query.Get("tab")),
		Today:     today,
	}

	tasks, err := s.store.ListTasks(r.Context(), filter)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, s.view(task, today))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := s.store.CreateTask(r.Context(), db.TaskInput{
		Title:        req.Title,
		NextAction:   req.NextAction,
		Status:       req.Status,
		DueDate:      req.DueDate,
		CanDoAnytime: req.CanDoAnytime,
		ProjectID:    req.ProjectID,
	})
	s.respondTask(w, http.StatusCreated, task, err)
}

func (s *Server) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), mux.Vars(r)["taskID"])
	s.respondTask(w, http.StatusOK, task, err)
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if !decode(w, r, &req) {
		return
	}

	task, err := s.store.UpdateTask(r.Context(), mux.Vars(r)["taskID"], db.TaskPatch{
		Title:        req.Title,
		NextAction:   req.NextAction,
		Status:       req.Status,
		DueDate:      req.DueDate,
		CanDoAnytime: req.CanDoAnytime,
		ProjectID:    req.ProjectID,
	})
	s.respondTask(w, http.StatusOK, task, err)
}

func (s *Server) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), mux.Vars(r)["taskID"]); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.CompleteTask(r.Context(), mux.Vars(r)["taskID"])
	s.respondTask(w, http.StatusOK, task, err)
}

func (s *Server) uncompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.UncompleteTask(r.Context(), mux.Vars(r)["taskID"])
	s.respondTask(w, http.StatusOK, task, err)
}

func (s *Server) clarifyTask(w http.ResponseWriter, r *http.Request) {
	var req clarifyRequest
	if !decode(w, r, &req) {
		return
	}
	task, err := s.store.ClarifyTask(r.Context(), mux.Vars(r)["taskID"], req.NextAction, req.ProjectID)
	s.respondTask(w, http.StatusOK, task, err)
}

func (s *Server) postponeTask(w http.ResponseWriter, r *http.Request) {
	req := postponeRequest{Days: 1}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	task, err := s.store.PostponeTask(r.Context(), mux.Vars(r)["taskID"], req.Days, s.today())
	s.respondTask(w, http.StatusOK, task, err)
}

func (s *Server) taskHistory(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	if _, err := s.store.GetTask(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	history, err := s.store.ListHistory(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) tabCounts(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.store.ListTasks(r.Context(), model.Filter{})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, tabs.Counts(tasks, s.today()))
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := s.store.CreateProject(r.Context(), req.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) renameProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !decode(w, r, &req) {
		return
	}
	project, err := s.store.RenameProject(r.Context(), mux.Vars(r)["projectID"], req.Name)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.DeleteProject(r.Context(), mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if deleted == nil {
		deleted = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"deletedTasks": deleted})
}

func (s *Server) chatHistory(w http.ResponseWriter, r *http.Request) {
	if !s.chatEnabled(w) {
		return
	}
	limit := 0
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", value))
			return
		}
		limit = parsed
	}
	messages, err := s.chat.History(r.Context(), limit)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) sendChat(w http.ResponseWriter, r *http.Request) {
	if !s.chatEnabled(w) {
		return
	}
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	reply, err := s.chat.Send(r.Context(), req.Message)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) clearChat(w http.ResponseWriter, r *http.Request) {
	if !s.chatEnabled(w) {
		return
	}
	if err := s.chat.Clear(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) chatEnabled(w http.ResponseWriter) bool {
	if s.chat == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("chat is not configured"))
		return false
	}
	return true
}

func (s *Server) respondTask(w http.ResponseWriter, status int, task model.Task, err error) {
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, status, s.view(task, s.today()))
}

// decode reads a JSON body into dst, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err))
		return false
	}
	return true
}
