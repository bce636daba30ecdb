package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/ticktick-mcp/internal/server"
	"github.com/teemow/ticktick-mcp/internal/ticktick"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// docsAPI is an offline stand-in for the TickTick client. Doc generation
// only needs the tool registration metadata, never a live API.
type docsAPI struct{}

func (docsAPI) GetProjects(ctx context.Context) ([]ticktick.Project, error) { return nil, nil }
func (docsAPI) GetProject(ctx context.Context, projectID string) (*ticktick.Project, error) {
	return &ticktick.Project{}, nil
}
func (docsAPI) GetProjectWithData(ctx context.Context, projectID string) (*ticktick.ProjectData, error) {
	return &ticktick.ProjectData{}, nil
}
func (docsAPI) CreateProject(ctx context.Context, name, color, viewMode string) (*ticktick.Project, error) {
	return &ticktick.Project{}, nil
}
func (docsAPI) DeleteProject(ctx context.Context, projectID string) error { return nil }
func (docsAPI) GetTask(ctx context.Context, projectID, taskID string) (*ticktick.Task, error) {
	return &ticktick.Task{}, nil
}
func (docsAPI) CreateTask(ctx context.Context, params ticktick.CreateTaskParams) (*ticktick.Task, error) {
	return &ticktick.Task{}, nil
}
func (docsAPI) UpdateTask(ctx context.Context, params ticktick.UpdateTaskParams) (*ticktick.Task, error) {
	return &ticktick.Task{}, nil
}
func (docsAPI) CompleteTask(ctx context.Context, projectID, taskID string) error { return nil }
func (docsAPI) DeleteTask(ctx context.Context, projectID, taskID string) error   { return nil }

func runGenerateDocs(outputFile string) error {
	// Create a server context backed by the offline stub
	ctx := context.Background()
	serverContext, err := server.NewServerContext(ctx, docsAPI{}, false)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	// Create MCP server
	mcpSrv := mcpserver.NewMCPServer("ticktick-mcp", version,
		mcpserver.WithToolCapabilities(true),
	)

	// Register all tools in write mode so the write tools are documented too
	if err := registerAllTools(mcpSrv, serverContext, false); err != nil {
		return err
	}

	// Get the list of tools
	serverTools := mcpSrv.ListTools()

	// Extract mcp.Tool from each ServerTool
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}

	// Generate markdown documentation
	markdown := generateToolsMarkdown(tools)

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running ticktick-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Group tools by category
	toolsByCategory := groupToolsByCategory(tools)

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	// Generate documentation for each category
	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		categories[category] = append(categories[category], tool)
	}

	return categories
}

func getCategoryFromToolName(name string) string {
	// get_project_tasks lists tasks but operates on a project, so suffix
	// matching decides the category.
	switch {
	case strings.HasSuffix(name, "_task"):
		return "Task Tools"
	case strings.Contains(name, "project"):
		return "Project Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	// Description
	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	// Input schema
	if tool.InputSchema.Properties != nil && len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			prop := tool.InputSchema.Properties[name]
			isRequired := contains(tool.InputSchema.Required, name)

			requiredStr := "optional"
			if isRequired {
				requiredStr = "required"
			}

			// Get property type and description from the property map
			propMap, ok := prop.(map[string]interface{})
			if !ok {
				continue
			}

			propType := getPropertyType(propMap)

			sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", propType))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
