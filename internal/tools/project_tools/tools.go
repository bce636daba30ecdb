package project_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/format"
	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/tools/common"
)

// RegisterProjectTools registers all project-related tools with the MCP server.
func RegisterProjectTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	registerReadTools(s, sc)
	if !readOnly {
		registerWriteTools(s, sc)
	}
	return nil
}

func registerReadTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	getProjectsTool := mcp.NewTool("get_projects",
		mcp.WithDescription("Get all projects from TickTick"),
	)
	s.AddTool(getProjectsTool, common.InstrumentedToolHandlerWithResource(
		"get_projects", instrumentation.ResourceProject, "list", sc,
		getProjectsHandler(sc)))

	getProjectTool := mcp.NewTool("get_project",
		mcp.WithDescription("Get details about a specific project"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project"),
		),
	)
	s.AddTool(getProjectTool, common.InstrumentedToolHandlerWithResource(
		"get_project", instrumentation.ResourceProject, "get", sc,
		getProjectHandler(sc)))

	getProjectTasksTool := mcp.NewTool("get_project_tasks",
		mcp.WithDescription("Get all tasks in a project"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project"),
		),
	)
	s.AddTool(getProjectTasksTool, common.InstrumentedToolHandlerWithResource(
		"get_project_tasks", instrumentation.ResourceTask, "list", sc,
		getProjectTasksHandler(sc)))
}

func registerWriteTools(s *mcpserver.MCPServer, sc *server.ServerContext) {
	createProjectTool := mcp.NewTool("create_project",
		mcp.WithDescription("Create a new project in TickTick"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the project"),
		),
		mcp.WithString("color",
			mcp.Description("Color of the project as a hex string (default: #F18181)"),
		),
		mcp.WithString("view_mode",
			mcp.Description("View mode of the project: list, kanban, or timeline (default: list)"),
		),
	)
	s.AddTool(createProjectTool, common.InstrumentedToolHandlerWithResource(
		"create_project", instrumentation.ResourceProject, "create", sc,
		createProjectHandler(sc)))

	deleteProjectTool := mcp.NewTool("delete_project",
		mcp.WithDescription("Delete a project from TickTick"),
		mcp.WithString("project_id",
			mcp.Required(),
			mcp.Description("ID of the project to delete"),
		),
	)
	s.AddTool(deleteProjectTool, common.InstrumentedToolHandlerWithResource(
		"delete_project", instrumentation.ResourceProject, "delete", sc,
		deleteProjectHandler(sc)))
}

func getProjectsHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceProject, "list")
		defer span.End()

		projects, err := sc.Client().GetProjects(ctx)
		if err != nil {
			return mcp.NewToolResultError(format.ReadError("projects", err)), nil
		}
		return mcp.NewToolResultText(format.ProjectList(projects)), nil
	}
}

func getProjectHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceProject, "get")
		defer span.End()

		project, err := sc.Client().GetProject(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(format.ReadError("project", err)), nil
		}
		return mcp.NewToolResultText(format.Project(project)), nil
	}
}

func getProjectTasksHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceTask, "list")
		defer span.End()

		data, err := sc.Client().GetProjectWithData(ctx, projectID)
		if err != nil {
			return mcp.NewToolResultError(format.ReadError("project tasks", err)), nil
		}

		projectName := projectID
		if data.Project != nil && data.Project.Name != "" {
			projectName = data.Project.Name
		}
		return mcp.NewToolResultText(format.ProjectTasks(projectName, data.Tasks)), nil
	}
}

func createProjectHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		name, ok := args["name"].(string)
		if !ok || name == "" {
			return mcp.NewToolResultError("name is required"), nil
		}

		color := ""
		if c, ok := args["color"].(string); ok {
			color = c
		}

		viewMode := "list"
		if vm, ok := args["view_mode"].(string); ok && vm != "" {
			viewMode = vm
		}
		if !format.ValidViewMode(viewMode) {
			return mcp.NewToolResultError(format.MsgInvalidViewMode), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceProject, "create")
		defer span.End()

		project, err := sc.Client().CreateProject(ctx, name, color, viewMode)
		if err != nil {
			return mcp.NewToolResultError(format.WriteError("creating project", err)), nil
		}
		return mcp.NewToolResultText(format.ProjectCreated(project)), nil
	}
}

func deleteProjectHandler(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		projectID, ok := args["project_id"].(string)
		if !ok || projectID == "" {
			return mcp.NewToolResultError("project_id is required"), nil
		}

		ctx, span := instrumentation.StartAPISpan(ctx, instrumentation.ResourceProject, "delete")
		defer span.End()

		if err := sc.Client().DeleteProject(ctx, projectID); err != nil {
			return mcp.NewToolResultError(format.WriteError("deleting project", err)), nil
		}
		return mcp.NewToolResultText(format.ProjectDeleted(projectID)), nil
	}
}
