// Package mcptools exposes property search and enrichment to MCP clients over
// stdio. Results are the same text the CLI prints.
package mcptools

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/propscout/propscout/api"
	"github.com/propscout/propscout/compare"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/enrichment"
	"github.com/propscout/propscout/enrichment/view"
	"github.com/propscout/propscout/logger"
)

// ServerName is reported to MCP clients.
const ServerName = "propscout"

// Server wraps a backend session and serves it as MCP tools.
type Server struct {
	user     *api.UserClient
	registry *enrichment.Registry
	server   *server.MCPServer
	log      *zap.SugaredLogger
}

// New creates the MCP server. registry nil means enrichment.DefaultRegistry().
func New(user *api.UserClient, registry *enrichment.Registry, version string, log *zap.SugaredLogger) *Server {
	if registry == nil {
		registry = enrichment.DefaultRegistry()
	}
	s := &Server{
		user:     user,
		registry: registry,
		log:      logger.OrNop(log).With(logger.FieldComponent, "mcp"),
	}
	s.server = server.NewMCPServer(ServerName, version, server.WithToolCapabilities(true))
	s.registerTools()
	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func (s *Server) Serve() error {
	return server.ServeStdio(s.server)
}

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool("search_properties",
		mcp.WithDescription("Search residential listings. Returns one line per property with its ID."),
		mcp.WithString("query", mcp.Description("Free text: address, neighbourhood or keyword")),
		mcp.WithString("city", mcp.Description("City name")),
		mcp.WithString("state", mcp.Description("Two-letter state code")),
		mcp.WithNumber("min_price", mcp.Description("Minimum price in dollars")),
		mcp.WithNumber("max_price", mcp.Description("Maximum price in dollars")),
		mcp.WithNumber("min_bedrooms", mcp.Description("Minimum number of bedrooms")),
		mcp.WithNumber("page", mcp.Description("Result page, starting at 1")),
	), s.handleSearch)

	s.server.AddTool(mcp.NewTool("get_property",
		mcp.WithDescription("Show the attributes of one property"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Property ID from search_properties")),
	), s.handleGetProperty)

	s.server.AddTool(mcp.NewTool("enrich_property",
		mcp.WithDescription("Neighbourhood data for a property: walkability, air quality, climate, flood zone, transportation, nearby places and distances to the user's saved locations"),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Property ID from search_properties")),
		mcp.WithBoolean("force_refresh", mcp.Description("Bypass the backend cache (default: false)")),
	), s.handleEnrich)

	s.server.AddTool(mcp.NewTool("compare_properties",
		mcp.WithDescription("Compare two to four properties side by side"),
		mcp.WithString("ids", mcp.Required(), mcp.Description("Comma separated property IDs")),
	), s.handleCompare)
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	params := api.SearchParams{
		Query:       request.GetString("query", ""),
		City:        request.GetString("city", ""),
		State:       request.GetString("state", ""),
		MinPrice:    request.GetFloat("min_price", 0),
		MaxPrice:    request.GetFloat("max_price", 0),
		MinBedrooms: request.GetFloat("min_bedrooms", 0),
		Page:        request.GetInt("page", 1),
	}
	res, err := s.user.Search(ctx, params)
	if err != nil {
		return s.toolError("search", err), nil
	}
	return render(func(b *bytes.Buffer) error { return display.SearchResults(b, res) })
}

func (s *Server) handleGetProperty(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.user.Property(ctx, int64(id))
	if err != nil {
		return s.toolError("get property", err), nil
	}
	return render(func(b *bytes.Buffer) error { return display.Property(b, p) })
}

func (s *Server) handleEnrich(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.user.Enrich(ctx, int64(id), api.EnrichRequest{ForceRefresh: request.GetBool("force_refresh", false)})
	if err != nil {
		return s.toolError("enrich", err), nil
	}

	report := view.NewReport(resp, s.registry)
	for _, f := range report.Selection.Failures {
		s.log.Warnw("Enrichment section dropped",
			logger.FieldPropertyID, id,
			logger.FieldSection, f.Descriptor,
			logger.FieldError, f.Err)
	}
	return render(func(b *bytes.Buffer) error {
		fmt.Fprintln(b, display.EnrichmentSummary(report.Metadata))
		fmt.Fprintln(b)
		if err := display.Views(b, report.Views); err != nil {
			return err
		}
		return display.Failures(b, report.Selection.Failures)
	})
}

func (s *Server) handleCompare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids, err := compare.ParseIDs(strings.Fields(strings.ReplaceAll(raw, ",", " ")))
	if err != nil {
		return mcp.NewToolResultError(api.UserMessage(err)), nil
	}
	props, err := s.user.Properties(ctx, ids)
	if err != nil {
		return s.toolError("compare", err), nil
	}
	table, err := compare.Build(props)
	if err != nil {
		return mcp.NewToolResultError(api.UserMessage(err)), nil
	}
	return render(func(b *bytes.Buffer) error { return display.Comparison(b, table) })
}

// toolError reports a failed backend call to the client. Tool failures are
// results, not protocol errors.
func (s *Server) toolError(op string, err error) *mcp.CallToolResult {
	s.log.Debugw("Tool call failed", logger.FieldOperation, op, logger.FieldError, err)
	msg := api.UserMessage(err)
	if code := api.StatusCode(err); code != 0 {
		msg += " (backend status " + strconv.Itoa(code) + ")"
	}
	return mcp.NewToolResultError(msg)
}

func render(fn func(*bytes.Buffer) error) (*mcp.CallToolResult, error) {
	var b bytes.Buffer
	if err := fn(&b); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}
