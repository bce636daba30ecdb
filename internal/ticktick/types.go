package ticktick

// Project represents a TickTick project (list).
type Project struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Color      string `json:"color,omitempty"`
	ViewMode   string `json:"viewMode,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Closed     bool   `json:"closed,omitempty"`
	GroupID    string `json:"groupId,omitempty"`
	SortOrder  int64  `json:"sortOrder,omitempty"`
	Permission string `json:"permission,omitempty"`
}

// Task represents a TickTick task.
type Task struct {
	ID            string          `json:"id,omitempty"`
	ProjectID     string          `json:"projectId,omitempty"`
	Title         string          `json:"title,omitempty"`
	Content       string          `json:"content,omitempty"`
	Desc          string          `json:"desc,omitempty"`
	IsAllDay      bool            `json:"isAllDay,omitempty"`
	StartDate     string          `json:"startDate,omitempty"`
	DueDate       string          `json:"dueDate,omitempty"`
	TimeZone      string          `json:"timeZone,omitempty"`
	Priority      int             `json:"priority,omitempty"`
	Status        int             `json:"status,omitempty"`
	CompletedTime string          `json:"completedTime,omitempty"`
	SortOrder     int64           `json:"sortOrder,omitempty"`
	Items         []ChecklistItem `json:"items,omitempty"`
}

// ChecklistItem represents a subtask within a task.
type ChecklistItem struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
	Status    int    `json:"status,omitempty"`
	SortOrder int64  `json:"sortOrder,omitempty"`
}

// Column represents a kanban column within a project.
type Column struct {
	ID        string `json:"id,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Name      string `json:"name,omitempty"`
	SortOrder int64  `json:"sortOrder,omitempty"`
}

// ProjectData bundles a project with its undone tasks and columns, as
// returned by GET /project/{id}/data. Project may be nil when the API
// response omits it.
type ProjectData struct {
	Project *Project `json:"project,omitempty"`
	Tasks   []Task   `json:"tasks,omitempty"`
	Columns []Column `json:"columns,omitempty"`
}

// TokenResponse is the TickTick OAuth token endpoint response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// CreateTaskParams holds the inputs for Client.CreateTask. Title and
// ProjectID are required; empty optional fields are omitted from the
// request payload.
type CreateTaskParams struct {
	Title     string
	ProjectID string
	Content   string
	StartDate string
	DueDate   string
	Priority  int
}

// UpdateTaskParams holds the inputs for Client.UpdateTask. TaskID and
// ProjectID identify the task; nil pointer fields are left untouched
// server-side.
type UpdateTaskParams struct {
	TaskID    string
	ProjectID string
	Title     *string
	Content   *string
	Priority  *int
	StartDate *string
	DueDate   *string
}
