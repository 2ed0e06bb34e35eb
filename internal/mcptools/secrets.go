package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"pai/internal/service"
)

// SecretsListTool handles secrets_list. Values are never exposed.
type SecretsListTool struct {
	svc *service.Service
}

// NewSecretsListTool creates a SecretsListTool
func NewSecretsListTool(svc *service.Service) *SecretsListTool {
	return &SecretsListTool{svc: svc}
}

// Definition returns the tool definition for secrets_list
func (t *SecretsListTool) Definition() mcp.Tool {
	return mcp.NewTool("secrets_list",
		mcp.WithDescription("List the keys held by the secrets backend. Values are never returned."),
		mcp.WithString("pattern",
			mcp.Description("Shell glob filter, e.g. API_*"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max keys (default: all)"),
		),
		adapterParam,
	)
}

// Handle processes the secrets_list call
func (t *SecretsListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := service.SecretFilter{
		Pattern: req.GetString("pattern", ""),
		Limit:   intArg(req, "limit", 0),
	}
	keys, err := t.svc.ListSecrets(ctx, filter, options(req))
	if err != nil {
		return failed("secrets list", err), nil
	}
	return jsonResult(keys)
}
