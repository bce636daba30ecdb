package task_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/format"
	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
)

// RegisterTaskTools registers all task-related tools with the MCP server.
func RegisterTaskTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerReadTools(s, sc)
	if !readOnly {
		registerWriteTools(s, sc)
	}
	return nil
}

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getTaskTool := mcp.NewTool("get_task",
		mcp.WithDescription("Get details about a specific task"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task"),
		),
	)
	s.AddTool(getTaskTool, common.InstrumentedToolHandlerWithResource(
		"get_task", instrumentation.ResourceTask, "get", sc,
		getTaskHandler(sc)))
}

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createTaskTool := mcp.NewTool("create_task",
		mcp.WithDescription("Create a new task in TickTick"),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Title of the task"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("content",
			mcp.Description("Content or description of the task"),
		),
		mcp.WithString("start_date",
			mcp.Description("Start date in ISO 8601 format (e.g. 2019-11-13T03:00:00+0000)"),
		),
		mcp.WithString("due_date",
			mcp.Description("Due date in ISO 8601 format (e.g. 2019-11-13T03:00:00+0000)"),
		),
		mcp.WithNumber("priority",
			mcp.Description("Priority of the task: 0 (None), 1 (Low), 3 (Medium), or 5 (High)"),
		),
	)
	s.AddTool(createTaskTool, common.InstrumentedToolHandlerWithResource(
		"create_task", instrumentation.ResourceTask, "create", sc,
		createTaskHandler(sc)))

	updateTaskTool := mcp.NewTool("update_task",
		mcp.WithDescription("Update an existing task in TickTick"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task to update"),
		),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("title",
			mcp.Description("New title for the task"),
		),
		mcp.WithString("content",
			mcp.Description("New content or description for the task"),
		),
		mcp.WithString("start_date",
			mcp.Description("New start date in ISO 8601 format (e.g. 2019-11-13T03:00:00+0000)"),
		),
		mcp.WithString("due_date",
			mcp.Description("New due date in ISO 8601 format (e.g. 2019-11-13T03:00:00+0000)"),
		),
		mcp.WithNumber("priority",
			mcp.Description("New priority for the task: 0 (None), 1 (Low), 3 (Medium), or 5 (High)"),
		),
	)
	s.AddTool(updateTaskTool, common.InstrumentedToolHandlerWithResource(
		"update_task", instrumentation.ResourceTask, "update", sc,
		updateTaskHandler(sc)))

	completeTaskTool := mcp.NewTool("complete_task",
		mcp.WithDescription("Mark a task as complete"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task to complete"),
		),
	)
	s.AddTool(completeTaskTool, common.InstrumentedToolHandlerWithResource(
		"complete_task", instrumentation.ResourceTask, "complete", sc,
		completeTaskHandler(sc)))

	deleteTaskTool := mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task from TickTick"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project the task belongs to"),
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("ID of the task to delete"),
		),
	)
	s.AddTool(deleteTaskTool, common.InstrumentedToolHandlerWithResource(
		"delete_task", instrumentation.ResourceTask, "delete", sc,
		deleteTaskHandler(sc)))
}

func getTaskHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}
		taskID, ok := args["task_id"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceTask, "get")
		defer span.End()

		task, err := sc.Client().GetTask(ctx, projectID, taskID)
		if err != nil {
			return mcp.NewToolResultError(format.ReadError("task", err)), nil
		}
		return mcp.NewToolResultText(format.Task(task)), nil
	}
}

func createTaskHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		title, ok := args["title"].(string)
		if !ok || title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}

		params := ticktick.CreateTaskParams{
			Title:     title,
			ProjectID: projectID,
		}
		if content, ok := args["content"].(string); ok {
			params.Content = content
		}
		if p, ok := args["priority"].(float64); ok {
			priority := int(p)
			if !format.ValidPriority(priority) {
				return mcp.NewToolResultError(format.MsgInvalidPriority), nil
			}
			params.Priority = priority
		}
		if startDate, ok := args["start_date"].(string); ok && startDate != "" {
			if !format.ValidDate(startDate) {
				return mcp.NewToolResultError(format.InvalidDateMessage("start_date")), nil
			}
			params.StartDate = startDate
		}
		if dueDate, ok := args["due_date"].(string); ok && dueDate != "" {
			if !format.ValidDate(dueDate) {
				return mcp.NewToolResultError(format.InvalidDateMessage("due_date")), nil
			}
			params.DueDate = dueDate
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceTask, "create")
		defer span.End()

		task, err := sc.Client().CreateTask(ctx, params)
		if err != nil {
			return mcp.NewToolResultError(format.WriteError("creating task", err)), nil
		}
		return mcp.NewToolResultText(format.TaskCreated(task)), nil
	}
}

func updateTaskHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		taskID, ok := args["task_id"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}
		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}

		params := ticktick.UpdateTaskParams{
			TaskID:    taskID,
			ProjectID: projectID,
		}
		if title, ok := args["title"].(string); ok && title != "" {
			params.Title = &title
		}
		if content, ok := args["content"].(string); ok && content != "" {
			params.Content = &content
		}
		if p, ok := args["priority"].(float64); ok {
			priority := int(p)
			if !format.ValidPriority(priority) {
				return mcp.NewToolResultError(format.MsgInvalidPriority), nil
			}
			params.Priority = &priority
		}
		if startDate, ok := args["start_date"].(string); ok && startDate != "" {
			if !format.ValidDate(startDate) {
				return mcp.NewToolResultError(format.InvalidDateMessage("start_date")), nil
			}
			params.StartDate = &startDate
		}
		if dueDate, ok := args["due_date"].(string); ok && dueDate != "" {
			if !format.ValidDate(dueDate) {
				return mcp.NewToolResultError(format.InvalidDateMessage("due_date")), nil
			}
			params.DueDate = &dueDate
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceTask, "update")
		defer span.End()

		task, err := sc.Client().UpdateTask(ctx, params)
		if err != nil {
			return mcp.NewToolResultError(format.WriteError("updating task", err)), nil
		}
		return mcp.NewToolResultText(format.TaskUpdated(task)), nil
	}
}

func completeTaskHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}
		taskID, ok := args["task_id"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceTask, "complete")
		defer span.End()

		if err := sc.Client().CompleteTask(ctx, projectID, taskID); err != nil {
			return mcp.NewToolResultError(format.WriteError("completing task", err)), nil
		}
		return mcp.NewToolResultText(format.TaskCompleted(taskID)), nil
	}
}

func deleteTaskHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}
		taskID, ok := args["task_id"].(string)
		if !ok || taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceTask, "delete")
		defer span.End()

		if err := sc.Client().DeleteTask(ctx, projectID, taskID); err != nil {
			return mcp.NewToolResultError(format.WriteError("deleting task", err)), nil
		}
		return mcp.NewToolResultText(format.TaskDeleted(taskID)), nil
	}
}
