package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// WorkspaceDirName is the directory name for project-level DeckPilot config.
	WorkspaceDirName = ".deckpilot"
	// WorkspaceConfigFile is the config file name inside the workspace directory.
	WorkspaceConfigFile = "config.yaml"
	// MaxSearchDepth limits how many parent directories to walk when discovering a workspace.
	MaxSearchDepth = 10
)

// WorkspaceOptions controls workspace discovery behavior.
type WorkspaceOptions struct {
	// Disable skips workspace discovery entirely (--no-workspace flag).
	Disable bool
	// ExplicitDir uses this directory as workspace root instead of walking up (--workspace-dir flag).
	ExplicitDir string
}

// Config captures all tunable settings for the DeckPilot MCP server.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Deck       DeckConfig       `yaml:"deck"`
	Render     RenderConfig     `yaml:"render"`
	Transcript TranscriptConfig `yaml:"transcript"`
	Voice      VoiceConfig      `yaml:"voice"`
	Web        WebConfig        `yaml:"web"`
	MCP        MCPConfig        `yaml:"mcp"`
	Recorder   RecorderConfig   `yaml:"recorder"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	LogFile string `yaml:"log_file"`
}

// DeckConfig identifies the presentation being served.
type DeckConfig struct {
	// Path to the PDF deck. Required.
	PDFPath string `yaml:"pdf_path"`
	// Optional path to the slide metadata YAML (ordered {page, title} list).
	SlidesPath string `yaml:"slides_path"`
}

// RenderConfig selects and tunes the render surface.
type RenderConfig struct {
	// Mode selects the surface: "web" pushes render commands to connected
	// browsers; "chrome" additionally rasterizes pages in headless Chrome.
	Mode string `yaml:"mode"`
	// Directory for Chrome page snapshots (chrome mode only).
	SnapshotDir string `yaml:"snapshot_dir"`
	// Per-render timeout (e.g., "10s").
	Timeout string       `yaml:"timeout"`
	Chrome  ChromeConfig `yaml:"chrome"`
}

// ChromeConfig configures how we attach to or launch Chrome for Rod.
type ChromeConfig struct {
	// Control endpoint for Rod (e.g., ws://localhost:9222). Optional when launch is set.
	DebuggerURL string `yaml:"debugger_url"`
	// Optional launch command to start Chrome (e.g., ["chrome", "--remote-debugging-port=9222"]).
	Launch []string `yaml:"launch"`
	// Headless controls whether Chrome runs in headless mode (default: true).
	Headless *bool `yaml:"headless"`
	// Viewport width for the viewer page (default: 1280).
	ViewportWidth int `yaml:"viewport_width"`
	// Viewport height for the viewer page (default: 720).
	ViewportHeight int `yaml:"viewport_height"`
}

// TranscriptConfig tunes transcript history and persistence.
type TranscriptConfig struct {
	// Maximum in-memory history entries before the oldest are dropped.
	// Zero means unbounded.
	HistoryLimit int `yaml:"history_limit"`
	// Path to the SQLite archive. Empty disables archiving.
	ArchivePath string `yaml:"archive_path"`
}

// VoiceConfig configures the remote conversational-AI session.
type VoiceConfig struct {
	// Enabled controls whether the server dials the voice provider at startup.
	Enabled bool `yaml:"enabled"`
	// Provider agent identifier.
	AgentID string `yaml:"agent_id"`
	// WebSocket endpoint of the provider.
	Endpoint string `yaml:"endpoint"`
	// Dial timeout (e.g., "10s").
	DialTimeout string `yaml:"dial_timeout"`
}

// WebConfig configures the human-facing viewer.
type WebConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type MCPConfig struct {
	// When set, starts an SSE server on this port instead of stdio-only.
	SSEPort int `yaml:"sse_port"`
}

// RecorderConfig controls the JSONL flight recorder.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig provides reasonable defaults for local development.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Name:    "deckpilot-mcp",
			Version: "0.1.0",
			LogFile: "deckpilot-mcp.log",
		},
		Deck: DeckConfig{
			SlidesPath: "slides.yaml",
		},
		Render: RenderConfig{
			Mode:        "web",
			SnapshotDir: "data/snapshots",
			Timeout:     "10s",
			Chrome: ChromeConfig{
				ViewportWidth:  1280,
				ViewportHeight: 720,
			},
		},
		Transcript: TranscriptConfig{
			HistoryLimit: 500,
		},
		Voice: VoiceConfig{
			DialTimeout: "10s",
		},
		Web: WebConfig{
			Bind: "127.0.0.1",
			Port: 8787,
		},
		MCP: MCPConfig{
			SSEPort: 0,
		},
		Recorder: RecorderConfig{
			Enabled: false,
			Dir:     "data/traces",
		},
	}
}

// Load reads YAML config from disk and overlays defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, errors.New("config path is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// DiscoverWorkspace walks up from startDir looking for a .deckpilot/config.yaml file.
// Returns the workspace root directory (parent of .deckpilot/) or empty string if not found.
func DiscoverWorkspace(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for i := 0; i < MaxSearchDepth; i++ {
		candidate := filepath.Join(dir, WorkspaceDirName, WorkspaceConfigFile)
		if _, err := os.Stat(candidate); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", nil
}

// LoadWithWorkspace implements multi-layer config merge:
//
//	DefaultConfig() <- .deckpilot/config.yaml <- explicit --config <- CLI flags
//
// Returns the merged config and the workspace directory (empty if none found).
func LoadWithWorkspace(explicitConfig string, opts WorkspaceOptions) (Config, string, error) {
	cfg := DefaultConfig()
	wsDir := ""

	// Layer 1: Workspace config (if not disabled)
	if !opts.Disable {
		var err error
		if opts.ExplicitDir != "" {
			// Verify the explicit workspace dir has a config
			candidate := filepath.Join(opts.ExplicitDir, WorkspaceDirName, WorkspaceConfigFile)
			if _, statErr := os.Stat(candidate); statErr == nil {
				wsDir = opts.ExplicitDir
			}
		} else {
			cwd, cwdErr := os.Getwd()
			if cwdErr != nil {
				return cfg, "", fmt.Errorf("getting working directory: %w", cwdErr)
			}
			wsDir, err = DiscoverWorkspace(cwd)
			if err != nil {
				return cfg, "", fmt.Errorf("discovering workspace: %w", err)
			}
		}

		if wsDir != "" {
			wsConfigPath := filepath.Join(wsDir, WorkspaceDirName, WorkspaceConfigFile)
			raw, err := os.ReadFile(wsConfigPath)
			if err != nil {
				return cfg, "", fmt.Errorf("reading workspace config %s: %w", wsConfigPath, err)
			}
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, "", fmt.Errorf("parsing workspace config %s: %w", wsConfigPath, err)
			}
			cfg = resolveWorkspacePaths(cfg, wsDir)
		}
	}

	// Layer 2: Explicit config file (--config flag)
	if explicitConfig != "" {
		raw, err := os.ReadFile(explicitConfig)
		if err != nil {
			return cfg, wsDir, fmt.Errorf("reading explicit config %s: %w", explicitConfig, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, wsDir, fmt.Errorf("parsing explicit config %s: %w", explicitConfig, err)
		}
	}

	return cfg, wsDir, cfg.Validate()
}

// InitWorkspace creates a .deckpilot/ directory with template files at root.
func InitWorkspace(root string) error {
	wsDir := filepath.Join(root, WorkspaceDirName)

	// Check if already exists
	if _, err := os.Stat(wsDir); err == nil {
		return fmt.Errorf("workspace directory already exists: %s", wsDir)
	}

	dirs := []string{
		wsDir,
		filepath.Join(wsDir, "data"),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	templateConfig := `# DeckPilot project-level configuration
# Values here override defaults but are overridden by --config and CLI flags.

# deck:
#   pdf_path: "slides.pdf"
#   slides_path: "slides.yaml"

# voice:
#   enabled: true
#   agent_id: "my-agent"
#   endpoint: "wss://provider.example/v1/convai"

# render:
#   mode: chrome
#   chrome:
#     launch: ["chrome", "--remote-debugging-port=9222"]
`
	configPath := filepath.Join(wsDir, WorkspaceConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	gitignoreContent := "# Runtime data (logs, traces, snapshots) - do not version control\ndata/\n"
	gitignorePath := filepath.Join(wsDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte(gitignoreContent), 0644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	return nil
}

// resolveWorkspacePaths resolves relative paths in the config against the workspace directory.
func resolveWorkspacePaths(cfg Config, wsDir string) Config {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(wsDir, p)
	}

	cfg.Server.LogFile = resolve(cfg.Server.LogFile)
	cfg.Deck.PDFPath = resolve(cfg.Deck.PDFPath)
	cfg.Deck.SlidesPath = resolve(cfg.Deck.SlidesPath)
	cfg.Render.SnapshotDir = resolve(cfg.Render.SnapshotDir)
	cfg.Transcript.ArchivePath = resolve(cfg.Transcript.ArchivePath)
	cfg.Recorder.Dir = resolve(cfg.Recorder.Dir)
	return cfg
}

// Validate ensures required fields exist so the server can start deterministically.
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return errors.New("server.name is required")
	}
	if c.Deck.PDFPath == "" {
		return errors.New("deck.pdf_path is required")
	}
	switch c.Render.Mode {
	case "", "web", "chrome":
	default:
		return fmt.Errorf("render.mode must be \"web\" or \"chrome\", got %q", c.Render.Mode)
	}
	if c.Render.Mode == "chrome" {
		if c.Render.Chrome.DebuggerURL == "" && len(c.Render.Chrome.Launch) == 0 {
			return errors.New("render.chrome.debugger_url or render.chrome.launch must be provided")
		}
	}
	if c.Voice.Enabled {
		if c.Voice.AgentID == "" {
			return errors.New("voice.agent_id is required when voice.enabled")
		}
		if c.Voice.Endpoint == "" {
			return errors.New("voice.endpoint is required when voice.enabled")
		}
	}
	return nil
}

// RenderTimeout returns the parsed render timeout with a sane default.
func (r RenderConfig) RenderTimeout() time.Duration {
	if r.Timeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// IsHeadless returns whether Chrome should run in headless mode (default: true).
func (c ChromeConfig) IsHeadless() bool {
	if c.Headless == nil {
		return true // default to headless
	}
	return *c.Headless
}

// GetViewportWidth returns the viewport width with a sane default.
func (c ChromeConfig) GetViewportWidth() int {
	if c.ViewportWidth <= 0 {
		return 1280
	}
	return c.ViewportWidth
}

// GetViewportHeight returns the viewport height with a sane default.
func (c ChromeConfig) GetViewportHeight() int {
	if c.ViewportHeight <= 0 {
		return 720
	}
	return c.ViewportHeight
}

// DialTimeoutDuration returns the parsed dial timeout with a sane default.
func (v VoiceConfig) DialTimeoutDuration() time.Duration {
	if v.DialTimeout == "" {
		return 10 * time.Second
	}
	d, err := time.ParseDuration(v.DialTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}
