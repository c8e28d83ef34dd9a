package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Joseda-hg/lazygtd/internal/chat"
	"github.com/Joseda-hg/lazygtd/internal/db"
	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/realtime"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"value": model.StringValue,
	"date": func(t time.Time) string {
		return t.Local().Format("2006-01-02 15:04")
	},
}

var (
	indexTemplate = template.Must(template.New("index.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.tmpl"))
	taskTemplate  = template.Must(template.New("task.tmpl").Funcs(templateFuncs).ParseFS(templateFS, "templates/task.tmpl"))
)

// Chat is the conversation backend behind /api/chat.
type Chat interface {
	Send(ctx context.Context, message string) (chat.Reply, error)
	History(ctx context.Context, limit int) ([]model.ChatMessage, error)
	Clear(ctx context.Context) error
}

type Server struct {
	store *db.Store
	hub   *realtime.Hub
	chat  Chat
	log   zerolog.Logger
	now   func() time.Time
}

type Option func(*Server)

func WithChat(c Chat) Option {
	return func(s *Server) { s.chat = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func NewServer(store *db.Store, hub *realtime.Hub, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{store: store, hub: hub, log: log, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{taskID}", s.taskHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tasks", s.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}", s.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{taskID}", s.updateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{taskID}", s.deleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/{taskID}/complete", s.completeTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/uncomplete", s.uncompleteTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/clarify", s.clarifyTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/postpone", s.postponeTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{taskID}/history", s.taskHistory).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.listProjects).Methods(http.MethodGet)
	api.HandleFunc("/projects", s.createProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}", s.renameProject).Methods(http.MethodPatch)
	api.HandleFunc("/projects/{projectID}", s.deleteProject).Methods(http.MethodDelete)
	api.HandleFunc("/chat", s.chatHistory).Methods(http.MethodGet)
	api.HandleFunc("/chat", s.sendChat).Methods(http.MethodPost)
	api.HandleFunc("/chat", s.clearChat).Methods(http.MethodDelete)
	api.HandleFunc("/events", s.events).Methods(http.MethodGet)
	api.HandleFunc("/tabs", s.tabCounts).Methods(http.MethodGet)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("no such endpoint"))
	})

	return Chain(router, WithRequestID, WithRecover(s.log), WithAccessLog(s.log))
}

func (s *Server) today() string {
	return tabs.Today(s.now())
}

type tabLink struct {
	Tab    tabs.Tab
	Label  string
	Count  int
	Active bool
}

type taskRow struct {
	Task    model.Task
	Tab     tabs.Tab
	Project string
	Overdue bool
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	current := tabs.Focus
	if value := strings.TrimSpace(r.URL.Query().Get("tab")); value != "" {
		parsed, err := tabs.Parse(value)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		current = parsed
	}

	tasks, err := s.store.ListTasks(r.Context(), model.Filter{})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	names := make(map[string]string, len(projects))
	for _, project := range projects {
		names[project.ID] = project.Name
	}

	counts := tabs.Counts(tasks, today)
	links := make([]tabLink, 0, len(tabs.All()))
	for _, tab := range tabs.All() {
		links = append(links, tabLink{Tab: tab, Label: tab.Label(), Count: counts[tab], Active: tab == current})
	}

	visible := tabs.Filter(tasks, current, today)
	rows := make([]taskRow, 0, len(visible))
	for _, task := range visible {
		rows = append(rows, taskRow{
			Task:    task,
			Tab:     tabs.Classify(task, today),
			Project: names[model.StringValue(task.ProjectID)],
			Overdue: task.Status != model.StatusDone && task.DueDate != nil && *task.DueDate < today,
		})
	}

	data := struct {
		Today string
		Tab   tabs.Tab
		Tabs  []tabLink
		Rows  []taskRow
	}{Today: today, Tab: current, Tabs: links, Rows: rows}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("render index")
	}
}

func (s *Server) taskHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["taskID"]
	task, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	history, err := s.store.ListHistory(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var project string
	if task.ProjectID != nil {
		if p, err := s.store.GetProject(r.Context(), *task.ProjectID); err == nil {
			project = p.Name
		}
	}

	data := struct {
		Task    model.Task
		Tab     tabs.Tab
		Project string
		History []model.HistoryEntry
	}{Task: task, Tab: tabs.Classify(task, s.today()), Project: project, History: history}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := taskTemplate.Execute(w, data); err != nil {
		s.log.Error().Err(err).Msg("render task")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrInvalid), errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
