package mcptools

import (
	"github.com/mark3labs/mcp-go/server"

	"pai/internal/service"
)

// Tools returns every tool backed by svc
func Tools(svc *service.Service) []Tool {
	return []Tool{
		NewHealthTool(svc),
		NewAdaptersTool(svc),
		NewSecretsListTool(svc),
		NewMetricsQueryTool(svc),
		NewAlertsTool(svc),
		NewCICDRunsTool(svc),
		NewIssuesListTool(svc),
	}
}

// NewServer creates an MCP server with every tool registered
func NewServer(svc *service.Service, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"pai",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	for _, t := range Tools(svc) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

const instructions = `pai reaches personal infrastructure through pluggable adapters.
Each domain (secrets, observability, cicd, issues, containers, network) has a
primary adapter and an optional fallback. Use provider_health to see which
adapter is serving a domain before relying on its data. Secret values are
never exposed; secrets_list returns key names only.`
