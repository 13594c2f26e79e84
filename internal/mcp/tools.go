package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leadbox/leadbox/internal/export"
	"github.com/leadbox/leadbox/internal/model"
	"github.com/leadbox/leadbox/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// registerTools registers the lead tools on srv.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("leadbox_list_leads",
			mcp.WithDescription(
				"List captured leads, newest first. Optionally filter with a "+
					"case-insensitive search over name, phone and message, or by status.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("search",
				mcp.Description("Substring to match against name, phone or message"),
			),
			mcp.WithString("status",
				mcp.Description("Only return leads with this status"),
				mcp.Enum(string(model.StatusNew), string(model.StatusContacted)),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of leads to return (default 50, max 1000)"),
			),
		),
		s.handleListLeads,
	)

	srv.AddTool(
		mcp.NewTool("leadbox_lead_stats",
			mcp.WithDescription("Count leads in total and per status."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleLeadStats,
	)

	srv.AddTool(
		mcp.NewTool("leadbox_mark_contacted",
			mcp.WithDescription(
				"Mark a lead as contacted. Marking an already contacted lead is a no-op.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("ID of the lead"),
			),
		),
		s.handleMarkContacted,
	)

	srv.AddTool(
		mcp.NewTool("leadbox_export_csv",
			mcp.WithDescription(
				"Export every lead as CSV with the columns "+strings.Join(export.Header, ", ")+".",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleExportCSV,
	)
}

func (s *MCPServer) handleListLeads(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	status := model.Status(optionalString(request, "status"))
	if status != "" && !status.Valid() {
		return toolError("Unknown status %q (use new or contacted)", status)
	}
	limit := clamp(optionalInt(request, "limit", defaultListLimit), 1, maxListLimit)

	leads, err := s.leads.ListLeads(ctx, model.LeadFilter{Search: optionalString(request, "search")})
	if err != nil {
		return toolError("Failed to list leads: %v", err)
	}

	items := make([]model.Lead, 0, len(leads))
	for _, lead := range leads {
		if status != "" && lead.Status != status {
			continue
		}
		items = append(items, lead)
		if len(items) == limit {
			break
		}
	}

	return successJSON(map[string]interface{}{
		"leads": items,
		"count": len(items),
	})
}

func (s *MCPServer) handleLeadStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	stats, err := s.leads.LeadStats(ctx)
	if err != nil {
		return toolError("Failed to count leads: %v", err)
	}
	return successJSON(stats)
}

func (s *MCPServer) handleMarkContacted(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}

	if err := s.leads.UpdateLeadStatus(ctx, id, model.StatusContacted); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError("Lead %d not found", id)
		}
		return toolError("Failed to update lead %d: %v", id, err)
	}

	lead, err := s.leads.GetLead(ctx, id)
	if err != nil {
		return toolError("Failed to reload lead %d: %v", id, err)
	}
	s.logger.Info("lead marked contacted via MCP", "lead_id", id)
	return successJSON(lead)
}

func (s *MCPServer) handleExportCSV(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	leads, err := s.leads.ListLeads(ctx, model.LeadFilter{})
	if err != nil {
		return toolError("Failed to list leads: %v", err)
	}

	data, err := export.CSV(leads)
	if err != nil {
		if errors.Is(err, export.ErrNoData) {
			return mcp.NewToolResultText(export.ErrNoData.Error()), nil
		}
		return toolError("Failed to export leads: %v", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
