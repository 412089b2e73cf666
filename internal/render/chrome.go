package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"deckpilot-mcp-server/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// ChromeSurface renders through a headless Chrome instance driven by Rod.
// Chrome loads the same embedded viewer the humans use; each RenderPage
// call turns the viewer's page and saves a PNG snapshot, so the deck gets
// server-side previews alongside the client-side broadcast.
type ChromeSurface struct {
	cfg       config.RenderConfig
	viewerURL string
	web       *WebSurface

	mu         sync.Mutex
	browser    *rod.Browser
	page       *rod.Page
	controlURL string
}

// NewChromeSurface wraps the web surface with Chrome-backed snapshotting.
// viewerURL is the address of the embedded viewer served by internal/web.
func NewChromeSurface(cfg config.RenderConfig, viewerURL string, web *WebSurface) (*ChromeSurface, error) {
	if web == nil {
		return nil, fmt.Errorf("render: web surface is required")
	}
	if viewerURL == "" {
		return nil, fmt.Errorf("render: viewer URL is required")
	}
	return &ChromeSurface{cfg: cfg, viewerURL: viewerURL, web: web}, nil
}

// Start connects to an existing Chrome or launches a new one using Rod's launcher.
func (s *ChromeSurface) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		if _, err := s.browser.Version(); err == nil {
			return nil // Browser is healthy, reuse it
		}
		log.Printf("Stale browser connection detected, reconnecting...")
		_ = s.browser.Close()
		s.browser = nil
		s.page = nil
		s.controlURL = ""
	}

	controlURL := s.cfg.Chrome.DebuggerURL
	if controlURL == "" && len(s.cfg.Chrome.Launch) > 0 {
		bin := s.cfg.Chrome.Launch[0]
		launch := launcher.New().Bin(bin).Headless(s.cfg.Chrome.IsHeadless())
		if len(s.cfg.Chrome.Launch) > 1 {
			for _, rawFlag := range s.cfg.Chrome.Launch[1:] {
				flagStr := strings.TrimLeft(rawFlag, "-")
				name, val, hasVal := strings.Cut(flagStr, "=")
				if hasVal {
					launch = launch.Set(flags.Flag(name), val)
				} else {
					launch = launch.Set(flags.Flag(name))
				}
			}
		}
		url, err := launch.Launch()
		if err != nil {
			// Fallback: let Rod pick the port and defaults.
			fallback := launcher.New().Bin(bin).Headless(s.cfg.Chrome.IsHeadless())
			if alt, altErr := fallback.Launch(); altErr == nil {
				controlURL = alt
			} else {
				return fmt.Errorf("launch chrome: %w (fallback: %v)", err, altErr)
			}
		} else {
			controlURL = url
		}
	}

	if controlURL == "" {
		return errors.New("no debugger_url or launch command provided")
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}

	s.browser = browser
	s.controlURL = controlURL
	log.Printf("Chrome connected at %s", controlURL)
	return nil
}

// LoadDocument parses the deck, then points Chrome at the viewer page.
func (s *ChromeSurface) LoadDocument(ctx context.Context, path string) (int, error) {
	total, err := s.web.LoadDocument(ctx, path)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		return 0, errors.New("chrome not connected; call Start first")
	}

	page, err := s.browser.Page(proto.TargetCreateTarget{URL: s.viewerURL})
	if err != nil {
		return 0, fmt.Errorf("open viewer page: %w", err)
	}

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.cfg.Chrome.GetViewportWidth(),
		Height:            s.cfg.Chrome.GetViewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		log.Printf("warning: failed to set viewport: %v", err)
	}

	if err := page.WaitLoad(); err != nil {
		log.Printf("warning: viewer page load: %v", err)
	}

	if s.page != nil {
		_ = s.page.Close()
	}
	s.page = page
	return total, nil
}

// RenderPage broadcasts the page turn, drives the headless viewer to the
// same page, and snapshots it to the configured directory.
func (s *ChromeSurface) RenderPage(ctx context.Context, n int) error {
	if err := s.web.RenderPage(ctx, n); err != nil {
		return err
	}

	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	if page == nil {
		return ErrNoDocument
	}

	timed := page.Context(ctx).Timeout(s.cfg.RenderTimeout())
	if _, err := timed.Eval(`(n) => window.deckpilot.renderPage(n)`, n); err != nil {
		return fmt.Errorf("viewer render of page %d: %w", n, err)
	}

	img, err := timed.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return fmt.Errorf("snapshot page %d: %w", n, err)
	}
	return s.writeSnapshot(n, img)
}

// ExtractText returns the page text from the server-side parser. The canvas
// Chrome paints has no text layer worth scraping.
func (s *ChromeSurface) ExtractText(ctx context.Context, n int) (string, error) {
	return s.web.ExtractText(ctx, n)
}

func (s *ChromeSurface) writeSnapshot(n int, img []byte) error {
	dir := s.cfg.SnapshotDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", n))
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", path, err)
	}
	return nil
}

// Shutdown closes the viewer page and the underlying browser.
func (s *ChromeSurface) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	s.controlURL = ""
	if closeErr := s.web.Close(); err == nil {
		err = closeErr
	}
	log.Printf("Chrome surface shutdown complete")
	return err
}
