package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-qa-bot/internal/core/ports"
)

const (
	serverName    = "document-qa-bot"
	serverVersion = "1.0.0"

	toolQuery = "query_documents"
	toolReset = "reset_conversation"
	toolHist  = "conversation_history"
)

// Server exposes the question answering pipeline as MCP tools.
type Server struct {
	query  ports.QueryService
	logger *slog.Logger
	mcp    *server.MCPServer
}

func New(query ports.QueryService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		query:  query,
		logger: logger,
		mcp:    server.NewMCPServer(serverName, serverVersion, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool(toolQuery,
		mcp.WithDescription("Answer a question from the indexed documents. Returns the answer and the sources it was grounded on."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer")),
	), s.handleQuery)
	s.mcp.AddTool(mcp.NewTool(toolHist,
		mcp.WithDescription("Return the conversation turns kept as memory."),
	), s.handleHistory)
	s.mcp.AddTool(mcp.NewTool(toolReset,
		mcp.WithDescription("Forget the conversation history."),
	), s.handleReset)
	return s
}

// Handler serves the streamable HTTP transport; mount it at /mcp.
func (s *Server) Handler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcp, server.WithEndpointPath("/mcp"))
}

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resp, err := s.query.Answer(ctx, question)
	if err != nil {
		s.logger.Warn("mcp_query_failed", "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(resp)
}

func (s *Server) handleHistory(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	turns, err := s.query.History(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"turns": turns})
}

func (s *Server) handleReset(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.query.ResetConversation(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(`{"status":"reset"}`), nil
}

func jsonResult(payload any) (*mcp.CallToolResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(body)), nil
}
