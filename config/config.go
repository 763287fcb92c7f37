package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type OllamaConfig struct {
	Host         string `toml:"host"`
	DefaultModel string `toml:"default_model"`
}

type ExportConfig struct {
	Username  string `toml:"username"`
	Directory string `toml:"directory,omitempty"`
}

type CatalogConfig struct {
	Listen string `toml:"listen"`
}

type UserConfig struct {
	Ollama              OllamaConfig  `toml:"ollama"`
	Export              ExportConfig  `toml:"export"`
	Catalog             CatalogConfig `toml:"catalog"`
	DefaultSystemPrompt string        `toml:"default_system_prompt,omitempty"`
}

type Config struct {
	DataDirectory       string
	OllamaHost          string
	DefaultModel        string
	DefaultSystemPrompt string
	ExportUsername      string
	ExportDirectory     string
	CatalogListen       string
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) OllamaURL() string {
	return c.OllamaHost
}

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// ExportDir returns the directory exported conversations are written to.
// Defaults to <data>/exports when not configured.
func (c *Config) ExportDir() string {
	if c.ExportDirectory != "" {
		return ExpandPath(c.ExportDirectory)
	}
	return filepath.Join(c.DataDir(), "exports")
}

func (c *Config) applyEnvOverrides() {
	if host := os.Getenv("LUNATUI_OLLAMA_HOST"); host != "" {
		c.OllamaHost = host
	}
	if model := os.Getenv("LUNATUI_OLLAMA_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("LUNATUI_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func CheckDebug() bool {
	debug := os.Getenv("LUNATUI_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600 - may contain conversation fragments
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (LUNATUI_DEBUG=%s) ===", os.Getenv("LUNATUI_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func HasAllEnvVars() bool {
	return os.Getenv("LUNATUI_OLLAMA_HOST") != "" &&
		os.Getenv("LUNATUI_OLLAMA_MODEL") != "" &&
		os.Getenv("LUNATUI_DATA_DIR") != ""
}

func HasAnyEnvVar() bool {
	return os.Getenv("LUNATUI_OLLAMA_HOST") != "" ||
		os.Getenv("LUNATUI_OLLAMA_MODEL") != "" ||
		os.Getenv("LUNATUI_DATA_DIR") != ""
}

func GetMissingEnvVar() string {
	if os.Getenv("LUNATUI_OLLAMA_HOST") == "" {
		return "LUNATUI_OLLAMA_HOST"
	}
	if os.Getenv("LUNATUI_OLLAMA_MODEL") == "" {
		return "LUNATUI_OLLAMA_MODEL"
	}
	if os.Getenv("LUNATUI_DATA_DIR") == "" {
		return "LUNATUI_DATA_DIR"
	}
	return ""
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory:  "~/.local/share/lunatui",
		OllamaHost:     DefaultOllamaHost,
		DefaultModel:   DefaultModel,
		ExportUsername: DefaultUsername,
		CatalogListen:  DefaultCatalogListen,
	}

	settingsPath := GetSettingsFilePath()

	if !FileExists(settingsPath) && HasAllEnvVars() {
		cfg.applyEnvOverrides()
	} else {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory

		userCfg, err := LoadUserConfig(cfg.DataDir())
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
		cfg.OllamaHost = userCfg.Ollama.Host
		cfg.DefaultModel = userCfg.Ollama.DefaultModel
		cfg.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
		cfg.ExportUsername = userCfg.Export.Username
		cfg.ExportDirectory = userCfg.Export.Directory
		cfg.CatalogListen = userCfg.Catalog.Listen

		if cfg.ExportUsername == "" {
			cfg.ExportUsername = DefaultUsername
		}
		if cfg.CatalogListen == "" {
			cfg.CatalogListen = DefaultCatalogListen
		}
		cfg.applyEnvOverrides()
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}
