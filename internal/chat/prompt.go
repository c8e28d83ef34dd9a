package chat

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Joseda-hg/lazygtd/internal/model"
	"github.com/Joseda-hg/lazygtd/internal/tabs"
)

const promptTemplate = `You are the assistant inside lazygtd, a Getting Things Done task manager.
Today is {{.Today}}.

Tabs: focus (due today or overdue), optional (can be done anytime), later (due in the future),
inbox (no next action yet), done.

Current tasks:
{{- range .Tasks}}
- id={{.ID}} tab={{.Tab}} title={{quote .Title}}{{with .NextAction}} next={{quote .}}{{end}}{{with .DueDate}} due={{.}}{{end}}
{{- else}}
(none)
{{- end}}
{{if .History}}
Conversation so far:
{{- range .History}}
{{.Role}}: {{.Content}}
{{- end}}
{{end}}
To change tasks, end your reply with a fenced block labelled actions holding one JSON object per line:
` + "```actions" + `
{"op":"create","title":"Buy milk","next_action":"Go to the shop","due_date":"2026-01-31"}
{"op":"complete","id":"<task id>"}
` + "```" + `
Valid ops: create, complete, uncomplete, clarify, postpone, update, delete.
Fields: id, title, next_action, due_date (YYYY-MM-DD), days, can_do_anytime, project_id.
Only include the block when the user asked for a change.

user: {{.Message}}
`

var prompt = template.Must(template.New("prompt").Funcs(template.FuncMap{
	"quote": func(s string) string { return fmt.Sprintf("%q", s) },
}).Option("missingkey=error").Parse(promptTemplate))

type promptTask struct {
	ID         string
	Tab        tabs.Tab
	Title      string
	NextAction string
	DueDate    string
}

type promptData struct {
	Today   string
	Tasks   []promptTask
	History []model.ChatMessage
	Message string
}

func renderPrompt(today, message string, tasks []model.Task, history []model.ChatMessage) (string, error) {
	data := promptData{Today: today, History: history, Message: strings.TrimSpace(message)}
	for _, task := range tasks {
		data.Tasks = append(data.Tasks, promptTask{
			ID:         task.ID,
			Tab:        tabs.Classify(task, today),
			Title:      task.Title,
			NextAction: model.StringValue(task.NextAction),
			DueDate:    model.StringValue(task.DueDate),
		})
	}

	var buf bytes.Buffer
	if err := prompt.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// expandArgs substitutes {{prompt}} in args, appending the prompt when no
// argument mentions it.
func expandArgs(args []string, prompt string) []string {
	out := make([]string, 0, len(args)+1)
	found := false
	for _, arg := range args {
		if strings.Contains(arg, "{{prompt}}") {
			found = true
			arg = strings.ReplaceAll(arg, "{{prompt}}", prompt)
		}
		out = append(out, arg)
	}
	if !found {
		out = append(out, prompt)
	}
	return out
}
