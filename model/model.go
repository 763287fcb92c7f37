package model

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ollama/ollama/api"

	"lunatui/config"
	"lunatui/ollama"
	"lunatui/storage"
)

// ChatClient is the capability the orchestrator needs from the transport:
// send a conversation, get back a response stream (or a one-shot title).
type ChatClient interface {
	ChatStream(ctx context.Context, messages []api.Message, fn ollama.FrameFunc) error
	GenerateTitle(ctx context.Context, history []api.Message) (string, error)
	Ping(ctx context.Context) error
	GetModel() string
}

var _ ChatClient = (*ollama.Client)(nil)

// Model holds the core application data and business logic state
type Model struct {
	Config   *config.Config
	Client   ChatClient
	History  *storage.HistoryStore
	Exporter *storage.Exporter
	Index    *storage.CatalogIndex

	// Runtime state (not UI)
	Loading      bool
	LastError    string
	SystemPrompt string
	Offline      bool

	// Events from the in-flight stream; recreated per send
	events chan tea.Msg

	Version string
}

// NewModel creates a new Model with the given configuration. A nil client is
// allowed and puts the session in offline mode.
func NewModel(cfg *config.Config, client ChatClient, history *storage.HistoryStore, exporter *storage.Exporter, index *storage.CatalogIndex, version string) *Model {
	return &Model{
		Config:       cfg,
		Client:       client,
		History:      history,
		Exporter:     exporter,
		Index:        index,
		SystemPrompt: cfg.DefaultSystemPrompt,
		Version:      version,
	}
}

// InFlight reports whether a send is between acceptance and Done/Failed.
func (m *Model) InFlight() bool {
	return m.Loading
}
