// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes spot tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/spotmap/internal/apperr"
	"github.com/starford/spotmap/internal/mapsurface"
	"github.com/starford/spotmap/internal/models"
	"github.com/starford/spotmap/internal/spots"
)

// Server wraps the MCP server with spot tools.
type Server struct {
	mcp     *server.MCPServer
	svc     *spots.Service
	surface *mapsurface.Surface
	fetch   photoFetcher
}

// New creates a new MCP server with all spot tools registered.
func New(svc *spots.Service, surface *mapsurface.Surface) *Server {
	s := &Server{svc: svc, surface: surface, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"Spotmap",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_spots",
		mcp.WithDescription("List all saved spots, oldest first. Photos are omitted."),
	), s.listSpots)

	s.mcp.AddTool(mcp.NewTool("get_spot",
		mcp.WithDescription("Read a single spot by id, including its inline photo if any."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spot id")),
	), s.getSpot)

	s.mcp.AddTool(mcp.NewTool("create_spot",
		mcp.WithDescription("Save a new spot at the given coordinates. "+
			"Read the spot format first via the get_spot_contract tool or the "+
			"spotmap://spot-format resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title, 1 to 100 characters")),
		mcp.WithNumber("latitude", mcp.Required(), mcp.Description("Latitude in degrees, -90 to 90")),
		mcp.WithNumber("longitude", mcp.Required(), mcp.Description("Longitude in degrees")),
		mcp.WithString("notes", mcp.Description("Optional notes, up to 1000 characters")),
		mcp.WithString("photo", mcp.Description("Optional image as a data: URI or an http(s) URL")),
	), s.createSpot)

	s.mcp.AddTool(mcp.NewTool("delete_spot",
		mcp.WithDescription("Delete a spot by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Spot id")),
	), s.deleteSpot)

	s.mcp.AddTool(mcp.NewTool("list_basemaps",
		mcp.WithDescription("List the available basemap tile sources and the active one."),
	), s.listBasemaps)

	s.mcp.AddTool(mcp.NewTool("get_spot_contract",
		mcp.WithDescription("Returns the spot format contract. "+
			"Call this before creating spots to ensure valid input."),
	), s.getSpotContract)

	// Resource: spot format contract.
	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Spot Format Contract",
			mcp.WithResourceDescription("Fields, limits and photo rules every spot must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSpotFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type spotSummary struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Notes     string  `json:"notes,omitempty"`
	HasPhoto  bool    `json:"hasPhoto"`
	CreatedAt int64   `json:"createdAt"`
}

func summarize(sp models.Spot) spotSummary {
	return spotSummary{
		ID:        sp.ID,
		Title:     sp.Title,
		Latitude:  sp.Latitude,
		Longitude: sp.Longitude,
		Notes:     sp.Notes,
		HasPhoto:  sp.HasPhoto(),
		CreatedAt: sp.CreatedAt,
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listSpots(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	all, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(all) == 0 {
		return mcp.NewToolResultText("no spots saved"), nil
	}
	out := make([]spotSummary, 0, len(all))
	for _, sp := range all {
		out = append(out, summarize(sp))
	}
	return jsonResult(out)
}

func (s *Server) getSpot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sp, err := s.svc.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sp)
}

func (s *Server) createSpot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lat, err := req.RequireFloat("latitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lng, err := req.RequireFloat("longitude")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := spots.Input{
		Title:     title,
		Latitude:  lat,
		Longitude: lng,
		Notes:     req.GetString("notes", ""),
	}
	if raw := req.GetString("photo", ""); raw != "" {
		photo, err := s.loadPhoto(ctx, raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.Photo = photo
	}

	sp, err := s.svc.Create(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", sp.ID)), nil
}

func (s *Server) deleteSpot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.Get(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", id)), nil
}

type basemapList struct {
	Basemaps []mapsurface.Basemap `json:"basemaps"`
	Active   string               `json:"active"`
}

func (s *Server) listBasemaps(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(basemapList{
		Basemaps: s.surface.Basemaps(),
		Active:   s.surface.ActiveBasemap().Name,
	})
}

func (s *Server) getSpotContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SpotFormatContract), nil
}

func (s *Server) readSpotFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     SpotFormatContract,
		},
	}, nil
}
