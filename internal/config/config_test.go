package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Server defaults
	if cfg.Server.Name != "deckpilot-mcp" {
		t.Errorf("expected server name 'deckpilot-mcp', got %q", cfg.Server.Name)
	}
	if cfg.Server.LogFile != "deckpilot-mcp.log" {
		t.Errorf("expected log file 'deckpilot-mcp.log', got %q", cfg.Server.LogFile)
	}

	// Render defaults
	if cfg.Render.Mode != "web" {
		t.Errorf("expected render mode 'web', got %q", cfg.Render.Mode)
	}
	if cfg.Render.Timeout != "10s" {
		t.Errorf("expected render timeout '10s', got %q", cfg.Render.Timeout)
	}
	if cfg.Render.Chrome.ViewportWidth != 1280 {
		t.Errorf("expected viewport width 1280, got %d", cfg.Render.Chrome.ViewportWidth)
	}
	if cfg.Render.Chrome.ViewportHeight != 720 {
		t.Errorf("expected viewport height 720, got %d", cfg.Render.Chrome.ViewportHeight)
	}

	// Transcript defaults
	if cfg.Transcript.HistoryLimit != 500 {
		t.Errorf("expected history limit 500, got %d", cfg.Transcript.HistoryLimit)
	}
	if cfg.Transcript.ArchivePath != "" {
		t.Errorf("expected empty archive path, got %q", cfg.Transcript.ArchivePath)
	}

	// Voice defaults
	if cfg.Voice.Enabled {
		t.Error("expected Voice.Enabled to be false")
	}

	// Web defaults
	if cfg.Web.Port != 8787 {
		t.Errorf("expected web port 8787, got %d", cfg.Web.Port)
	}

	// Recorder defaults
	if cfg.Recorder.Enabled {
		t.Error("expected Recorder.Enabled to be false")
	}
	if cfg.Recorder.Dir != "data/traces" {
		t.Errorf("expected recorder dir 'data/traces', got %q", cfg.Recorder.Dir)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Error("expected error for empty path")
	}
	if err.Error() != "config path is required" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	raw := `
server:
  name: test-deck
deck:
  pdf_path: "deck.pdf"
render:
  timeout: "3s"
transcript:
  history_limit: 42
  archive_path: "transcript.db"
web:
  port: 9000
`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Name != "test-deck" {
		t.Errorf("expected server name 'test-deck', got %q", cfg.Server.Name)
	}
	if cfg.Deck.PDFPath != "deck.pdf" {
		t.Errorf("expected pdf path 'deck.pdf', got %q", cfg.Deck.PDFPath)
	}
	if cfg.Render.RenderTimeout() != 3*time.Second {
		t.Errorf("expected render timeout 3s, got %v", cfg.Render.RenderTimeout())
	}
	if cfg.Transcript.HistoryLimit != 42 {
		t.Errorf("expected history limit 42, got %d", cfg.Transcript.HistoryLimit)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("expected web port 9000, got %d", cfg.Web.Port)
	}
	// Defaults should survive a partial overlay
	if cfg.Web.Bind != "127.0.0.1" {
		t.Errorf("expected default bind, got %q", cfg.Web.Bind)
	}
}

func TestValidate(t *testing.T) {
	t.Run("missing pdf path", func(t *testing.T) {
		cfg := DefaultConfig()
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing deck.pdf_path")
		}
	})

	t.Run("bad render mode", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Deck.PDFPath = "deck.pdf"
		cfg.Render.Mode = "opengl"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown render mode")
		}
	})

	t.Run("chrome mode needs endpoint or launch", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Deck.PDFPath = "deck.pdf"
		cfg.Render.Mode = "chrome"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when chrome mode has no debugger_url or launch")
		}
		cfg.Render.Chrome.DebuggerURL = "ws://localhost:9222"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("voice requires agent and endpoint", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Deck.PDFPath = "deck.pdf"
		cfg.Voice.Enabled = true
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when voice enabled without agent_id")
		}
		cfg.Voice.AgentID = "agent-1"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error when voice enabled without endpoint")
		}
		cfg.Voice.Endpoint = "wss://provider.example/convai"
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestAccessorDefaults(t *testing.T) {
	var r RenderConfig
	if r.RenderTimeout() != 10*time.Second {
		t.Errorf("expected default render timeout 10s, got %v", r.RenderTimeout())
	}
	r.Timeout = "garbage"
	if r.RenderTimeout() != 10*time.Second {
		t.Errorf("expected fallback render timeout 10s, got %v", r.RenderTimeout())
	}

	var c ChromeConfig
	if !c.IsHeadless() {
		t.Error("expected headless default true")
	}
	headless := false
	c.Headless = &headless
	if c.IsHeadless() {
		t.Error("expected headless false when explicitly disabled")
	}
	if c.GetViewportWidth() != 1280 || c.GetViewportHeight() != 720 {
		t.Error("expected default viewport 1280x720")
	}

	var v VoiceConfig
	if v.DialTimeoutDuration() != 10*time.Second {
		t.Errorf("expected default dial timeout 10s, got %v", v.DialTimeoutDuration())
	}
}

func TestDiscoverWorkspace(t *testing.T) {
	root := t.TempDir()
	wsDir := filepath.Join(root, WorkspaceDirName)
	if err := os.MkdirAll(wsDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	cfgPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(cfgPath, []byte("server:\n  name: ws\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	found, err := DiscoverWorkspace(nested)
	if err != nil {
		t.Fatalf("DiscoverWorkspace: %v", err)
	}
	if found != root {
		t.Errorf("expected workspace root %q, got %q", root, found)
	}

	// No workspace anywhere above an isolated dir
	lonely := t.TempDir()
	found, err = DiscoverWorkspace(lonely)
	if err != nil {
		t.Fatalf("DiscoverWorkspace: %v", err)
	}
	if found != "" {
		t.Errorf("expected no workspace, got %q", found)
	}
}

func TestInitWorkspace(t *testing.T) {
	root := t.TempDir()
	if err := InitWorkspace(root); err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, WorkspaceDirName, WorkspaceConfigFile)); err != nil {
		t.Errorf("expected template config file: %v", err)
	}
	// Second init must refuse to overwrite
	if err := InitWorkspace(root); err == nil {
		t.Error("expected error on double init")
	}
}
