// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the editing session to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/document"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/search"
)

// FormatURI is the resource URI of the note format contract.
const FormatURI = "quire://note-format"

// Searcher runs vault-wide searches over the section index.
type Searcher interface {
	Search(query string, limit int) ([]models.SectionHit, error)
}

// Server wraps the MCP server with the note tools.
type Server struct {
	mcp  *server.MCPServer
	sess *noteservice.Session
	idx  Searcher
}

// New creates a new MCP server with all tools registered. idx may be nil,
// in which case search_notes reports that the index is disabled.
func New(sess *noteservice.Session, idx Searcher, version string) *Server {
	s := &Server{sess: sess, idx: idx}

	s.mcp = server.NewMCPServer(
		"Quire",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_sections",
		mcp.WithDescription("List the sections of the active note file in file order."),
	), s.listSections)

	s.mcp.AddTool(mcp.NewTool("read_section",
		mcp.WithDescription("Read the content of one section of the active note file."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
	), s.readSection)

	s.mcp.AddTool(mcp.NewTool("write_section",
		mcp.WithDescription("Replace the content of a section. Changes stay in memory until save_file is called."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New section text, stored verbatim. A <section=NAME> marker inside it is not escaped and starts a new section when the file is next loaded")),
	), s.writeSection)

	s.mcp.AddTool(mcp.NewTool("add_section",
		mcp.WithDescription("Append an empty section. Names are letters only, at least two characters."),
		mcp.WithString("section", mcp.Required(), mcp.Description("New section name")),
	), s.addSection)

	s.mcp.AddTool(mcp.NewTool("delete_section",
		mcp.WithDescription("Delete a section. The last remaining section cannot be deleted."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
	), s.deleteSection)

	s.mcp.AddTool(mcp.NewTool("find_in_section",
		mcp.WithDescription("Case-insensitive literal search inside one section. Offsets are in characters."),
		mcp.WithString("section", mcp.Required(), mcp.Description("Section name")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Text to find, at least two characters")),
	), s.findInSection)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Search every indexed section of every note file under the notes root."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of hits (default: 20)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("open_file",
		mcp.WithDescription("Open a note file and make it the active file. Unsaved changes are discarded."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path relative to the notes root")),
		mcp.WithBoolean("create", mcp.Description("Create the file with an empty default section")),
	), s.openFile)

	s.mcp.AddTool(mcp.NewTool("save_file",
		mcp.WithDescription("Write the active document to disk."),
	), s.saveFile)

	s.mcp.AddTool(mcp.NewTool("get_file_info",
		mcp.WithDescription("Path, size and last update time of the active note file."),
	), s.getFileInfo)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the note file format. Read it before writing section content."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Note Format",
			mcp.WithResourceDescription("Sectioned plain-text note file format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
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

func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listSections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(strings.Join(s.sess.Sections(), "\n")), nil
}

func (s *Server) readSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("section")
	if err != nil {
		return toolError(err), nil
	}
	content, err := s.sess.Content(ctx, name)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) writeSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("section")
	if err != nil {
		return toolError(err), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return toolError(err), nil
	}
	if err := s.sess.SetContent(ctx, name, content); err != nil {
		return toolError(err), nil
	}
	if document.HasMarker(content) {
		return mcp.NewToolResultText(fmt.Sprintf("updated: %s (warning: content contains a section marker and will split on reload)", name)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s", name)), nil
}

func (s *Server) addSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("section")
	if err != nil {
		return toolError(err), nil
	}
	if err := s.sess.AddSection(ctx, name); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added: %s", name)), nil
}

func (s *Server) deleteSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("section")
	if err != nil {
		return toolError(err), nil
	}
	if err := s.sess.DeleteSection(ctx, name); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %s", name)), nil
}

func (s *Server) findInSection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("section")
	if err != nil {
		return toolError(err), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(err), nil
	}
	matches, err := s.sess.Find(ctx, name, query)
	if err != nil {
		return toolError(err), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText(search.Summary(matches)), nil
	}
	return jsonResult(map[string]any{
		"summary": search.Summary(matches),
		"matches": matches,
	}), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.idx == nil {
		return mcp.NewToolResultError("index disabled"), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return toolError(err), nil
	}
	results, err := s.idx.Search(query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	return jsonResult(results), nil
}

func (s *Server) openFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return toolError(err), nil
	}
	if req.GetBool("create", false) {
		err = s.sess.Create(ctx, path)
	} else {
		err = s.sess.Open(ctx, path)
	}
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrDocumentFormat):
		return mcp.NewToolResultText(fmt.Sprintf("opened: %s (no section found, started with an empty %q section)",
			path, s.sess.DefaultSection())), nil
	default:
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("opened: %s\nsections: %s", path, strings.Join(s.sess.Sections(), ", "))), nil
}

func (s *Server) saveFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.sess.Save(ctx); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("saved: " + s.sess.FilePath()), nil
}

func (s *Server) getFileInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.sess.Info()), nil
}

func (s *Server) getNoteFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}
