package format

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

// Validation messages returned verbatim to the MCP client.
const (
	MsgInvalidPriority = "Invalid priority. Must be 0 (None), 1 (Low), 3 (Medium), or 5 (High)."
	MsgInvalidViewMode = "Invalid view_mode. Must be one of: list, kanban, timeline."
)

// dateLayouts are the accepted input formats for start_date and due_date.
// The second one is TickTick's own timestamp format (no colon in the zone
// offset, so it is not RFC 3339).
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// PriorityLabel maps a TickTick priority value to its display label.
func PriorityLabel(priority int) string {
	switch priority {
	case 0:
		return "None"
	case 1:
		return "Low"
	case 3:
		return "Medium"
	case 5:
		return "High"
	default:
		return "Unknown"
	}
}

// StatusLabel maps a task status value to its display label.
func StatusLabel(status int) string {
	switch status {
	case 0:
		return "Active"
	case 2:
		return "Completed"
	default:
		return "Unknown"
	}
}

// ValidPriority reports whether priority is one of the values TickTick
// accepts.
func ValidPriority(priority int) bool {
	switch priority {
	case 0, 1, 3, 5:
		return true
	}
	return false
}

// ValidViewMode reports whether mode is a valid project view mode.
func ValidViewMode(mode string) bool {
	switch mode {
	case "list", "kanban", "timeline":
		return true
	}
	return false
}

// ValidDate reports whether value parses under one of the accepted date
// layouts.
func ValidDate(value string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

// InvalidDateMessage names the offending field in the validation message.
func InvalidDateMessage(field string) string {
	return fmt.Sprintf("Invalid %s format. Please use ISO 8601 format (e.g. 2019-11-13T03:00:00+0000).", field)
}

// Project renders a single project block. The "ID:" line always starts a
// line; callers scrape it.
func Project(p *ticktick.Project) string {
	var b strings.Builder

	name := p.Name
	if name == "" {
		name = "No name"
	}
	id := p.ID
	if id == "" {
		id = "No ID"
	}

	fmt.Fprintf(&b, "Name: %s\n", name)
	fmt.Fprintf(&b, "ID: %s\n", id)
	if p.Color != "" {
		fmt.Fprintf(&b, "Color: %s\n", p.Color)
	}
	if p.ViewMode != "" {
		fmt.Fprintf(&b, "View Mode: %s\n", p.ViewMode)
	}
	if p.Kind != "" {
		fmt.Fprintf(&b, "Kind: %s\n", p.Kind)
	}
	fmt.Fprintf(&b, "Closed: %t\n", p.Closed)

	return b.String()
}

// Task renders a single task block including content and subtasks.
func Task(t *ticktick.Task) string {
	var b strings.Builder

	title := t.Title
	if title == "" {
		title = "No title"
	}
	id := t.ID
	if id == "" {
		id = "No ID"
	}

	fmt.Fprintf(&b, "Title: %s\n", title)
	fmt.Fprintf(&b, "ID: %s\n", id)
	if t.ProjectID != "" {
		fmt.Fprintf(&b, "Project ID: %s\n", t.ProjectID)
	}
	if t.StartDate != "" {
		fmt.Fprintf(&b, "Start Date: %s\n", t.StartDate)
	}
	if t.DueDate != "" {
		fmt.Fprintf(&b, "Due Date: %s\n", t.DueDate)
	}
	fmt.Fprintf(&b, "Priority: %s\n", PriorityLabel(t.Priority))
	fmt.Fprintf(&b, "Status: %s\n", StatusLabel(t.Status))

	if t.Content != "" {
		fmt.Fprintf(&b, "Content:\n%s\n", t.Content)
	}

	if len(t.Items) > 0 {
		fmt.Fprintf(&b, "Subtasks (%d):\n", len(t.Items))
		for i, item := range t.Items {
			marker := "□"
			if item.Status != 0 {
				marker = "✓"
			}
			fmt.Fprintf(&b, "  %d. %s %s\n", i+1, marker, item.Title)
		}
	}

	return b.String()
}

// ProjectList renders the response of get_projects.
func ProjectList(projects []ticktick.Project) string {
	if len(projects) == 0 {
		return "No projects found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d projects:\n\n", len(projects))
	for i := range projects {
		fmt.Fprintf(&b, "Project %d:\n%s\n", i+1, Project(&projects[i]))
	}
	return b.String()
}

// ProjectTasks renders the response of get_project_tasks. The count is
// never pluralized differently; "Found 1 tasks" is the established output.
func ProjectTasks(projectName string, tasks []ticktick.Task) string {
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks found in project '%s'", projectName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d tasks in project '%s':\n\n", len(tasks), projectName)
	for i := range tasks {
		fmt.Fprintf(&b, "Task %d:\n%s\n", i+1, Task(&tasks[i]))
	}
	return b.String()
}

// TaskCreated renders the success message of create_task.
func TaskCreated(t *ticktick.Task) string {
	return "Task created successfully:\n\n" + Task(t)
}

// TaskUpdated renders the success message of update_task.
func TaskUpdated(t *ticktick.Task) string {
	return "Task updated successfully:\n\n" + Task(t)
}

// TaskCompleted renders the success message of complete_task.
func TaskCompleted(taskID string) string {
	return fmt.Sprintf("Task %s marked as complete.", taskID)
}

// TaskDeleted renders the success message of delete_task.
func TaskDeleted(taskID string) string {
	return fmt.Sprintf("Task %s deleted successfully.", taskID)
}

// ProjectCreated renders the success message of create_project.
func ProjectCreated(p *ticktick.Project) string {
	return "Project created successfully:\n\n" + Project(p)
}

// ProjectDeleted renders the success message of delete_project.
func ProjectDeleted(projectID string) string {
	return fmt.Sprintf("Project %s deleted successfully.", projectID)
}

// ReadError renders a failed read. API failures read "Error fetching …",
// anything unexpected reads "Error retrieving …" so the two stay
// distinguishable in transcripts.
func ReadError(what string, err error) string {
	var apiErr *ticktick.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("Error fetching %s: %s", what, apiErr.Message)
	}
	return fmt.Sprintf("Error retrieving %s: %s", what, err.Error())
}

// WriteError renders a failed write, e.g. "Error creating task: …". Writes
// use one verb regardless of the failure class.
func WriteError(action string, err error) string {
	msg := err.Error()
	var apiErr *ticktick.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	return fmt.Sprintf("Error %s: %s", action, msg)
}
