package mcptools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"pai/internal/domain"
	"pai/internal/service"
)

// MetricsQueryTool handles metrics_query
type MetricsQueryTool struct {
	svc *service.Service
}

// NewMetricsQueryTool creates a MetricsQueryTool
func NewMetricsQueryTool(svc *service.Service) *MetricsQueryTool {
	return &MetricsQueryTool{svc: svc}
}

// Definition returns the tool definition for metrics_query
func (t *MetricsQueryTool) Definition() mcp.Tool {
	return mcp.NewTool("metrics_query",
		mcp.WithDescription(
			"Run a query against the observability backend. With 'range' set, returns "+
				"samples from now-range to now at 'step' resolution; otherwise an instant query.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Query expression, e.g. up or rate(http_requests_total[5m])"),
		),
		mcp.WithString("range",
			mcp.Description("Lookback window as a Go duration, e.g. 1h"),
		),
		mcp.WithString("step",
			mcp.Description("Range resolution as a Go duration (default: 1m)"),
		),
		adapterParam,
	)
}

// Handle processes the metrics_query call
func (t *MetricsQueryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}

	var (
		res *domain.QueryResult
		err error
	)
	if s := req.GetString("range", ""); s != "" {
		lookback, perr := time.ParseDuration(s)
		if perr != nil {
			return mcp.NewToolResultError("invalid range: " + perr.Error()), nil
		}
		step, perr := time.ParseDuration(req.GetString("step", "1m"))
		if perr != nil {
			return mcp.NewToolResultError("invalid step: " + perr.Error()), nil
		}
		end := time.Now().UTC()
		res, err = t.svc.QueryRange(ctx, query, domain.QueryRange{Start: end.Add(-lookback), End: end, Step: step}, options(req))
	} else {
		res, err = t.svc.Query(ctx, query, time.Time{}, options(req))
	}
	if err != nil {
		return failed("query", err), nil
	}
	return jsonResult(res)
}

// AlertsTool handles alerts_list
type AlertsTool struct {
	svc *service.Service
}

// NewAlertsTool creates an AlertsTool
func NewAlertsTool(svc *service.Service) *AlertsTool {
	return &AlertsTool{svc: svc}
}

// Definition returns the tool definition for alerts_list
func (t *AlertsTool) Definition() mcp.Tool {
	return mcp.NewTool("alerts_list",
		mcp.WithDescription("List active alerts from the observability backend."),
		mcp.WithString("state",
			mcp.Description("Filter by state: firing, pending or inactive"),
		),
		adapterParam,
	)
}

// Handle processes the alerts_list call
func (t *AlertsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state := domain.AlertState(req.GetString("state", ""))
	alerts, err := t.svc.Alerts(ctx, state, options(req))
	if err != nil {
		return failed("alerts list", err), nil
	}
	return jsonResult(alerts)
}
