// Package mcptools exposes provider operations as MCP tools.
//
// Each tool follows the same shape:
//   - a struct holding the *service.Service
//   - Definition() returns the mcp.Tool schema
//   - Handle() runs the operation and returns a JSON text result
//
// Provider failures are returned as tool errors, never as protocol errors,
// so the calling model sees the message.
package mcptools

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"pai/internal/codec"
	"pai/internal/domain"
	"pai/internal/provider"
)

// Tool is one MCP tool
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

var adapterParam = mcp.WithString("adapter",
	mcp.Description("Use this adapter instead of the configured primary (fallback still applies)"),
)

// intArg extracts an integer argument (JSON numbers are float64)
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// listArg splits a comma separated argument
func listArg(req mcp.CallToolRequest, key string) []string {
	var out []string
	for _, s := range strings.Split(req.GetString(key, ""), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func options(req mcp.CallToolRequest) provider.Options {
	return provider.Options{Adapter: req.GetString("adapter", "")}
}

func domainArg(req mcp.CallToolRequest) (domain.Domain, error) {
	return domain.ParseDomain(req.GetString("domain", ""))
}

// jsonResult renders v as compact JSON text
func jsonResult(v any) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := (&codec.JSONCodec{Compact: true}).Encode(&buf, v); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(strings.TrimRight(buf.String(), "\n")), nil
}

func failed(op string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", op, err))
}
