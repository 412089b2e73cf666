package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"deckpilot-mcp-server/internal/config"
	"deckpilot-mcp-server/internal/deck"
	mcpserver "deckpilot-mcp-server/internal/mcp"
	"deckpilot-mcp-server/internal/nav"
	"deckpilot-mcp-server/internal/recorder"
	"deckpilot-mcp-server/internal/render"
	"deckpilot-mcp-server/internal/transcript"
	"deckpilot-mcp-server/internal/voice"
	"deckpilot-mcp-server/internal/web"

	"github.com/google/uuid"
)

func main() {
	configPath := flag.String("config", "", "Path to an explicit DeckPilot config file (overrides workspace config)")
	ssePort := flag.Int("sse-port", 0, "Optional SSE port override (falls back to config)")
	noWorkspace := flag.Bool("no-workspace", false, "Skip .deckpilot workspace discovery")
	workspaceDir := flag.String("workspace-dir", "", "Use this directory as workspace root instead of walking up")
	flag.Parse()

	if flag.Arg(0) == "init" {
		cwd, err := os.Getwd()
		if err != nil {
			log.Fatalf("failed to resolve working directory: %v", err)
		}
		if err := config.InitWorkspace(cwd); err != nil {
			log.Fatalf("failed to initialize workspace: %v", err)
		}
		fmt.Printf("initialized %s workspace in %s\n", config.WorkspaceDirName, cwd)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, wsDir, err := config.LoadWithWorkspace(*configPath, config.WorkspaceOptions{
		Disable:     *noWorkspace,
		ExplicitDir: *workspaceDir,
	})
	if err != nil {
		// Before we can redirect logs, write to stderr as last resort
		log.Fatalf("failed to load config: %v", err)
	}
	if *ssePort != 0 {
		cfg.MCP.SSEPort = *ssePort
	}

	// Redirect logging to file for stdio mode (stderr interferes with MCP protocol)
	if cfg.MCP.SSEPort == 0 && cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(logFile)
			defer logFile.Close()
		} else {
			// If we can't open log file, disable logging to avoid stderr pollution
			log.SetOutput(io.Discard)
		}
	}
	if wsDir != "" {
		log.Printf("using workspace at %s", wsDir)
	}

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server exited with error: %v", err)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	bus := deck.NewBus()

	// Peek at the deck once so the page count is known before anything that
	// depends on it (slide validation, page state) is built. The render
	// surface re-opens the document itself on LoadDocument.
	peek, err := render.OpenTextExtractor(cfg.Deck.PDFPath)
	if err != nil {
		return fmt.Errorf("opening deck %s: %w", cfg.Deck.PDFPath, err)
	}
	totalPages := peek.PageCount()
	peek.Close()

	slides, err := deck.LoadSlides(cfg.Deck.SlidesPath, totalPages)
	if err != nil {
		return fmt.Errorf("loading slide metadata: %w", err)
	}

	hub := web.NewHub(bus, slides)
	defer hub.Close()

	webSurface, err := render.NewWebSurface(hub)
	if err != nil {
		return err
	}

	viewerURL := fmt.Sprintf("http://%s:%d/static/index.html", cfg.Web.Bind, cfg.Web.Port)
	var surface render.Surface = webSurface
	if cfg.Render.Mode == "chrome" {
		chrome, err := render.NewChromeSurface(cfg.Render, viewerURL, webSurface)
		if err != nil {
			return err
		}
		if err := chrome.Start(ctx); err != nil {
			return fmt.Errorf("starting headless preview: %w", err)
		}
		defer chrome.Shutdown(context.Background())
		surface = chrome
	}

	if _, err := surface.LoadDocument(ctx, cfg.Deck.PDFPath); err != nil {
		return fmt.Errorf("loading deck: %w", err)
	}

	state, err := deck.NewPageState(totalPages, bus)
	if err != nil {
		return err
	}
	coordinator, err := nav.NewCoordinator(state, surface, bus, cfg.Render.RenderTimeout())
	if err != nil {
		return err
	}
	defer coordinator.Close()

	// The recorder joins the transcript display fan-out, so it must exist
	// before the router.
	var display transcript.Display = hub
	if cfg.Recorder.Enabled {
		rec, err := recorder.NewRecorder(cfg.Recorder.Dir)
		if err != nil {
			return fmt.Errorf("initializing flight recorder: %w", err)
		}
		if err := rec.Start(uuid.NewString()); err != nil {
			return fmt.Errorf("starting flight recorder: %w", err)
		}
		defer rec.Close()
		defer rec.Attach(bus)()
		display = transcript.Fanout(hub, rec)
	}

	transcripts, err := transcript.NewRouter(display, cfg.Transcript.HistoryLimit)
	if err != nil {
		return err
	}
	if cfg.Transcript.ArchivePath != "" {
		archive, err := transcript.OpenArchive(cfg.Transcript.ArchivePath)
		if err != nil {
			return fmt.Errorf("opening transcript archive: %w", err)
		}
		defer archive.Close()
		transcripts.SetArchive(archive)
	}

	hub.BindCoordinator(coordinator)
	hub.BindTranscripts(transcripts)

	binding := mcpserver.NewBinding()
	binding.BindCoordinator(coordinator)
	binding.BindTranscripts(transcripts)

	server, err := mcpserver.NewServer(cfg, binding, slides)
	if err != nil {
		return fmt.Errorf("initializing MCP server: %w", err)
	}

	if cfg.Voice.Enabled {
		session, err := voice.Dial(ctx, cfg.Voice, voice.SessionConfig{
			ClientTools: []string{"nextPage", "previousPage", "goToPage", "getCurrentPage", "getTotalPages", "getPageText"},
			Handlers: voice.SessionHandlers{
				OnConnect: func(conversationID string) {
					log.Printf("voice session established: %s", conversationID)
				},
				OnDisconnect: func() {
					log.Printf("voice session closed")
					transcripts.UnbindSession()
				},
				OnError: func(err error) {
					log.Printf("voice session error: %v", err)
				},
				OnMessage: transcripts.HandleInbound,
				OnModeChange: func(mode string) {
					log.Printf("voice agent mode: %s", mode)
				},
			},
		})
		if err != nil {
			// The deck is still drivable without the agent; degrade, don't die.
			log.Printf("voice session unavailable: %v", err)
		} else {
			transcripts.BindSession(session)
			defer session.EndSession()
		}
	}

	httpServer, err := web.NewServer(cfg.Web, hub, cfg.Deck.PDFPath, slides)
	if err != nil {
		return err
	}
	webErr := make(chan error, 1)
	go func() {
		webErr <- web.Run(ctx, httpServer)
	}()

	if err := coordinator.RenderCurrent(ctx); err != nil {
		log.Printf("initial render failed: %v", err)
	}

	var startErr error
	if cfg.MCP.SSEPort > 0 {
		log.Printf("starting DeckPilot MCP SSE server on port %d", cfg.MCP.SSEPort)
		startErr = server.StartSSE(ctx, cfg.MCP.SSEPort)
	} else {
		log.Printf("starting DeckPilot MCP stdio server")
		startErr = server.Start(ctx)
	}

	select {
	case err := <-webErr:
		if startErr == nil {
			startErr = err
		}
	default:
	}
	return startErr
}
