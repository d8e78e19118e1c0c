package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/scribe/internal/jobs"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Registry   *jobs.Registry
	Dispatcher Submitter
	Version    string
}

// NewMCPServer creates an MCP server exposing the job engine as tools:
// submitting transcriptions, polling job state, and listing jobs.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"scribe",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("scribe runs asynchronous transcription and categorization jobs. Submit a job, then poll it by id."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("submit_transcription",
			mcp.WithDescription("Submit a new transcription job. Returns the job id to poll."),
			mcp.WithString("owner", mcp.Description("Optional identifier of the submitting user")),
		),
		mcpSubmitTranscription(deps),
	)

	s.AddTool(
		mcp.NewTool("get_job",
			mcp.WithDescription("Fetch the current snapshot of one job by id."),
			mcp.WithString("id", mcp.Description("Job id returned by submit_transcription"), mcp.Required()),
		),
		mcpGetJob(deps),
	)

	s.AddTool(
		mcp.NewTool("list_jobs",
			mcp.WithDescription("List tracked jobs, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of jobs to return (default 20)")),
		),
		mcpListJobs(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"jobs://recent",
			"Recent Jobs",
			mcp.WithResourceDescription("Last 10 jobs (summaries only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpSubmitTranscription(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		owner := req.GetString("owner", "")

		job := deps.Registry.Create(owner)
		deps.Dispatcher.Dispatch(job.ID, job.Owner)

		b, err := json.Marshal(map[string]string{
			"id":     job.ID,
			"status": string(job.Status),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal response: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetJob(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("id")
		if err != nil {
			return mcpError("id is required"), nil
		}

		job, err := deps.Registry.Get(id)
		if errors.Is(err, jobs.ErrNotFound) {
			return mcpError(fmt.Sprintf("job %s not found", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get job: %v", err)), nil
		}

		b, err := json.Marshal(job)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal job: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListJobs(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		list := deps.Registry.List()
		if len(list) > limit {
			list = list[:limit]
		}

		b, err := json.Marshal(list)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal jobs: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		list := deps.Registry.List()
		if len(list) > 10 {
			list = list[:10]
		}

		type jobSummary struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			Progress  int    `json:"progress"`
			CreatedAt string `json:"created_at"`
		}

		summaries := make([]jobSummary, len(list))
		for i, j := range list {
			summaries[i] = jobSummary{
				ID:        j.ID,
				Status:    string(j.Status),
				Progress:  j.Progress,
				CreatedAt: j.CreatedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal jobs: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
