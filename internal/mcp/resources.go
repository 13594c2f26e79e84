package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leadbox/leadbox/internal/store"
)

const (
	statsURI      = "leadbox://stats"
	leadURIPrefix = "leadbox://leads/"
)

// registerResources adds read-only resources clients can load into context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			statsURI,
			"Lead Statistics",
			mcp.WithResourceDescription("Total, new and contacted lead counts."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleStatsResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			leadURIPrefix+"{id}",
			"Lead",
			mcp.WithTemplateDescription("A single lead with its status and submission time."),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleLeadResource,
	)
}

func (s *MCPServer) handleStatsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	stats, err := s.leads.LeadStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	return jsonResource(statsURI, stats)
}

func (s *MCPServer) handleLeadResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	raw := strings.TrimPrefix(uri, leadURIPrefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if raw == uri || err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid lead URI %q: expected %s{id}", uri, leadURIPrefix)
	}

	lead, err := s.leads.GetLead(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lead %d not found", id)
		}
		return nil, fmt.Errorf("failed to load lead %d: %w", id, err)
	}
	return jsonResource(uri, lead)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
