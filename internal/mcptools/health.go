package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"pai/internal/provider"
	"pai/internal/service"
)

// HealthTool handles provider_health
type HealthTool struct {
	svc *service.Service
}

// NewHealthTool creates a HealthTool
func NewHealthTool(svc *service.Service) *HealthTool {
	return &HealthTool{svc: svc}
}

// Definition returns the tool definition for provider_health
func (t *HealthTool) Definition() mcp.Tool {
	return mcp.NewTool("provider_health",
		mcp.WithDescription(
			"Probe the configured adapters of a domain (primary and fallback) and report "+
				"which are healthy. Without a domain, every configured domain is probed.",
		),
		mcp.WithString("domain",
			mcp.Description("One of secrets, observability, cicd, issues, containers, network"),
		),
		adapterParam,
	)
}

// Handle processes the provider_health call
func (t *HealthTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var (
		results []provider.CandidateHealth
		err     error
	)
	if req.GetString("domain", "") == "" {
		results, err = t.svc.HealthAll(ctx)
	} else {
		d, perr := domainArg(req)
		if perr != nil {
			return mcp.NewToolResultError(perr.Error()), nil
		}
		results, err = t.svc.Health(ctx, d, options(req))
	}
	if err != nil {
		return failed("health check", err), nil
	}
	return jsonResult(results)
}

// AdaptersTool handles adapters_list
type AdaptersTool struct {
	svc *service.Service
}

// NewAdaptersTool creates an AdaptersTool
func NewAdaptersTool(svc *service.Service) *AdaptersTool {
	return &AdaptersTool{svc: svc}
}

// Definition returns the tool definition for adapters_list
func (t *AdaptersTool) Definition() mcp.Tool {
	return mcp.NewTool("adapters_list",
		mcp.WithDescription("List the adapters available for a domain and which one is primary or fallback."),
		mcp.WithString("domain",
			mcp.Required(),
			mcp.Description("One of secrets, observability, cicd, issues, containers, network"),
		),
	)
}

// Handle processes the adapters_list call
func (t *AdaptersTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d, err := domainArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	infos, err := t.svc.Adapters(d)
	if err != nil {
		return failed("adapter discovery", err), nil
	}
	return jsonResult(infos)
}
