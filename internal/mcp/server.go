package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"deckpilot-mcp-server/internal/config"
	"deckpilot-mcp-server/internal/deck"
	"deckpilot-mcp-server/internal/nav"
	"deckpilot-mcp-server/internal/transcript"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime to the deck tools. The MCP runtime's own
// registry is the one sanctioned tool registry; its lifecycle is scoped to
// this value, never process-wide.
type Server struct {
	cfg       config.Config
	binding   *Binding
	slides    []deck.Slide
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// Binding carries the late-bound collaborators the deck tools call into.
// Tools are registered against a Binding before the coordinator exists;
// binding the live coordinator upgrades every stub in place, so the remote
// agent never has to re-discover the tool set.
type Binding struct {
	mu          sync.RWMutex
	coordinator *nav.Coordinator
	transcripts *transcript.Router
}

// NewBinding creates an empty binding; tools answer "not ready" until the
// live collaborators arrive.
func NewBinding() *Binding { return &Binding{} }

// BindCoordinator installs the live navigation coordinator.
func (b *Binding) BindCoordinator(c *nav.Coordinator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coordinator = c
}

// BindTranscripts installs the live transcript router.
func (b *Binding) BindTranscripts(r *transcript.Router) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transcripts = r
}

// Coordinator returns the bound coordinator, or nil before binding.
func (b *Binding) Coordinator() *nav.Coordinator {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.coordinator
}

// Transcripts returns the bound transcript router, or nil before binding.
func (b *Binding) Transcripts() *transcript.Router {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.transcripts
}

// NewServer constructs the DeckPilot MCP server and registers all tools and
// resources. The binding is required; slides may be empty.
func NewServer(cfg config.Config, binding *Binding, slides []deck.Slide) (*Server, error) {
	if binding == nil {
		return nil, fmt.Errorf("mcp: binding is required")
	}

	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithResourceCapabilities(true, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	server := &Server{
		cfg:       cfg,
		binding:   binding,
		slides:    slides,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
	}

	server.registerAllTools()
	server.registerAllResources()
	return server, nil
}

// Start launches the stdio server (Claude/Gemini CLI default).
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ExecuteTool executes a tool directly (used by demos/tests).
func (s *Server) ExecuteTool(name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(context.Background(), args)
}

func (s *Server) registerAllTools() {
	// Deck navigation - the surface the remote voice agent drives.
	s.registerTool(&NextPageTool{binding: s.binding})
	s.registerTool(&PreviousPageTool{binding: s.binding})
	s.registerTool(&GoToPageTool{binding: s.binding})
	s.registerTool(&GetCurrentPageTool{binding: s.binding})
	s.registerTool(&GetTotalPagesTool{binding: s.binding})
	s.registerTool(&GetPageTextTool{binding: s.binding})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			// Some agents send a bare number instead of {"pageNumber": n};
			// fold it into the object shape the tools expect.
			if raw := request.Params.Arguments; raw != nil {
				args = map[string]interface{}{"pageNumber": raw}
			} else {
				args = map[string]interface{}{}
			}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}
