package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourceMIMEJSON = "application/json"
)

func (s *Server) registerAllResources() {
	if s == nil || s.mcpServer == nil {
		return
	}

	s.mcpServer.AddResource(
		mcp.NewResource(
			"deckpilot://about",
			"DeckPilot About",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("High-level server info and usage notes."),
		),
		s.handleAboutResource,
	)

	s.mcpServer.AddResource(
		mcp.NewResource(
			"deckpilot://slides",
			"Slide Index",
			mcp.WithMIMEType(resourceMIMEJSON),
			mcp.WithResourceDescription("Per-page slide titles for the loaded deck, when a slide manifest is configured."),
		),
		s.handleSlidesResource,
	)

	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"deckpilot://transcript{?limit}",
			"Conversation Transcript",
			mcp.WithTemplateMIMEType(resourceMIMEJSON),
			mcp.WithTemplateDescription("Recent transcript entries, oldest first (optionally capped by limit)."),
		),
		s.handleTranscriptResource,
	)
}

func (s *Server) handleAboutResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"name":    s.cfg.Server.Name,
		"version": s.cfg.Server.Version,
		"notes": []string{
			"Resources are read-only context endpoints; use tools for navigation.",
			"Call getCurrentPage before jumping: the deck may have moved since your last tool call.",
			"getPageText reads the slide actually on screen, not a cached copy.",
		},
		"timestamp_ms": time.Now().UnixMilli(),
	}

	return s.jsonResource(request.Params.URI, payload)
}

func (s *Server) handleSlidesResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	payload := map[string]interface{}{
		"count":  len(s.slides),
		"slides": s.slides,
	}
	return s.jsonResource(request.Params.URI, payload)
}

func (s *Server) handleTranscriptResource(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	limit := asInt(request.Params.Arguments["limit"])
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	router := s.binding.Transcripts()
	if router == nil {
		return s.jsonResource(request.Params.URI, map[string]interface{}{
			"count":   0,
			"entries": []interface{}{},
		})
	}

	entries := router.History()
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	payload := map[string]interface{}{
		"limit":   limit,
		"count":   len(entries),
		"entries": entries,
	}
	return s.jsonResource(request.Params.URI, payload)
}

func (s *Server) jsonResource(uri string, payload interface{}) ([]mcp.ResourceContents, error) {
	text, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: resourceMIMEJSON,
			Text:     string(text),
		},
	}, nil
}
