package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/server"
)

// RegisterProjectResources registers read-only MCP resources exposing the
// TickTick project list and per-project data as JSON.
func RegisterProjectResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	projectsResource := mcp.NewResource(
		"ticktick://projects",
		"TickTick Projects",
		mcp.WithResourceDescription("All projects visible to the configured TickTick account"),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(projectsResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProjectList(ctx, request, sc)
	})

	projectTemplate := mcp.NewResourceTemplate(
		"ticktick://projects/{id}",
		"TickTick Project",
		mcp.WithTemplateDescription("A single project with its tasks and columns"),
		mcp.WithTemplateMIMEType("application/json"),
	)

	s.AddResourceTemplate(projectTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleProjectData(ctx, request, sc)
	})

	return nil
}

func handleProjectList(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	projects, err := sc.Client().GetProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	jsonData, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal projects: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

func handleProjectData(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	projectID := projectIDFromURI(request.Params.URI)
	if projectID == "" {
		return nil, fmt.Errorf("invalid project resource URI: %s", request.Params.URI)
	}

	data, err := sc.Client().GetProjectWithData(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch project %s: %w", projectID, err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal project data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// projectIDFromURI extracts the id from a ticktick://projects/{id} URI.
func projectIDFromURI(uri string) string {
	const prefix = "ticktick://projects/"
	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	return strings.TrimPrefix(uri, prefix)
}
