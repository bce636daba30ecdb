package common

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/ticktick-mcp/internal/instrumentation"
	"github.com/teemow/ticktick-mcp/internal/server"
)

// ToolHandler is the handler signature expected by the MCP server.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with metrics and audit logging.
// It records tool invocation metrics and logs the invocation for audit purposes.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// If no instrumentation configured, just call the handler
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx)

		caller := CallerFromContext(ctx)
		if caller != LocalCaller {
			invocation.WithUser(caller)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if err != nil {
				invocation.CompleteWithError(err)
			} else {
				invocation.Complete(false, nil)
			}
		} else {
			invocation.CompleteSuccess()
		}

		if metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, duration)
		}
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// InstrumentedToolHandlerWithResource is like InstrumentedToolHandler but
// also records the TickTick resource and operation for more detailed
// metrics.
//
// This handler records both:
// - MCP tool invocation metrics (mcp_tool_invocations_total, mcp_tool_duration_seconds)
// - TickTick API operation metrics (ticktick_api_operations_total, ticktick_api_operation_duration_seconds)
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithResource("my_tool", instrumentation.ResourceTask, "create", sc, handler))
func InstrumentedToolHandlerWithResource(
	toolName string,
	resource string,
	operation string,
	sc *server.ServerContext,
	handler ToolHandler,
) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		metrics := sc.Metrics()
		auditLogger := sc.AuditLogger()

		// If no instrumentation configured, just call the handler
		if metrics == nil && auditLogger == nil {
			return handler(ctx, request)
		}

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithResource(resource, operation)

		caller := CallerFromContext(ctx)
		if caller != LocalCaller {
			invocation.WithUser(caller)
		}

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = instrumentation.StatusError
			if err != nil {
				invocation.CompleteWithError(err)
			} else {
				invocation.Complete(false, nil)
			}
		} else {
			invocation.CompleteSuccess()
		}

		if metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, duration)
			metrics.RecordTickTickAPIOperation(ctx, resource, operation, status, duration)
		}
		if auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}
