package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Joseda-hg/lazygtd/internal/model"
)

func formatCreatedDetails(task model.Task) string {
	return fmt.Sprintf("created: %s", formatTaskFields(task))
}

func formatDeletedDetails(task model.Task) string {
	return fmt.Sprintf("deleted: %s", formatTaskFields(task))
}

func formatTaskFields(task model.Task) string {
	return fmt.Sprintf("title='%s' next='%s' status=%s due=%s anytime=%t project=%s",
		task.Title, valueOrNone(model.StringValue(task.NextAction)), task.Status,
		valueOrNone(model.StringValue(task.DueDate)), task.CanDoAnytime,
		valueOrNone(model.StringValue(task.ProjectID)))
}

func formatTaskDiff(event string, before, after model.Task) string {
	changes := []string{}
	if before.Title != after.Title {
		changes = append(changes, formatChange("title", before.Title, after.Title))
	}
	if model.StringValue(before.NextAction) != model.StringValue(after.NextAction) {
		changes = append(changes, formatChange("next action", model.StringValue(before.NextAction), model.StringValue(after.NextAction)))
	}
	if before.Status != after.Status {
		changes = append(changes, formatChange("status", string(before.Status), string(after.Status)))
	}
	if model.StringValue(before.DueDate) != model.StringValue(after.DueDate) {
		changes = append(changes, formatChange("due", model.StringValue(before.DueDate), model.StringValue(after.DueDate)))
	}
	if before.CanDoAnytime != after.CanDoAnytime {
		changes = append(changes, formatChange("anytime", strconv.FormatBool(before.CanDoAnytime), strconv.FormatBool(after.CanDoAnytime)))
	}
	if model.StringValue(before.ProjectID) != model.StringValue(after.ProjectID) {
		changes = append(changes, formatChange("project", model.StringValue(before.ProjectID), model.StringValue(after.ProjectID)))
	}
	if before.PostponeCount != after.PostponeCount {
		changes = append(changes, formatChange("postponed", strconv.Itoa(before.PostponeCount), strconv.Itoa(after.PostponeCount)))
	}

	if len(changes) == 0 {
		return event + ": no changes"
	}

	return event + ": " + strings.Join(changes, "; ")
}

func formatChange(field, before, after string) string {
	return fmt.Sprintf("%s: '%s' -> '%s'", field, valueOrNone(before), valueOrNone(after))
}

func valueOrNone(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "none"
	}
	return trimmed
}
