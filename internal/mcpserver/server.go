// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes vault section tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/syncembed/internal/noteservice"
)

const embedSyntaxURI = "syncembed://embed-syntax"

// Server wraps the MCP server with section tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"syncembed",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every indexed note with its title."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the heading outline of a note. Each entry is a section that can be "+
			"read, written or embedded with ![[note#Heading]]."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. folder/note.md)")),
	), s.listSections)

	s.mcp.AddTool(mcp.NewTool("read_section",
		mcp.WithDescription("Read one section of a note: its heading line and everything below it up to "+
			"the next heading of the same or a higher level. Returns the note checksum for write_section."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
		mcp.WithString("title", mcp.Description("Exact heading text; omit to read the whole note")),
	), s.readSection)

	s.mcp.AddTool(mcp.NewTool("write_section",
		mcp.WithDescription("Replace the body below a heading, keeping the heading line. "+
			"The body must not contain headings at or above the section level."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Exact heading text")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New section body")),
		mcp.WithString("if_match", mcp.Description("Checksum from read_section; the write fails if the note changed")),
	), s.writeSection)

	s.mcp.AddTool(mcp.NewTool("get_embed_syntax",
		mcp.WithDescription("Returns the sync block and embed declaration syntax. "+
			"Call this before inserting live section embeds into a note."),
	), s.getEmbedSyntax)

	// Resource: embed syntax.
	s.mcp.AddResource(
		mcp.NewResource(embedSyntaxURI, "Sync Embed Syntax",
			mcp.WithResourceDescription("Syntax of sync blocks and embed declarations."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readEmbedSyntaxResource,
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

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.svc.ListNotes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s\t%s", r.Path, r.Title))
	}
	if len(lines) == 0 {
		return mcp.NewToolResultText("no notes indexed"), nil
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) listSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Outline(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(note.Headings) == 0 {
		return mcp.NewToolResultText("no headings"), nil
	}
	lines := make([]string, 0, len(note.Headings))
	for _, h := range note.Headings {
		lines = append(lines, strings.Repeat("#", h.Level)+" "+h.Title)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title := ""
	if t, err := req.RequireString("title"); err == nil {
		title = t
	}
	sec, err := s.svc.ReadSection(ctx, path, title)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(sec, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) writeSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ifMatch := ""
	if m, err := req.RequireString("if_match"); err == nil {
		ifMatch = m
	}

	sec, err := s.svc.WriteSection(ctx, path, title, body, ifMatch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s#%s (checksum %s)", path, title, sec.Checksum)), nil
}

func (s *Server) getEmbedSyntax(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EmbedSyntax), nil
}

func (s *Server) readEmbedSyntaxResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      embedSyntaxURI,
			MIMEType: "text/markdown",
			Text:     EmbedSyntax,
		},
	}, nil
}
