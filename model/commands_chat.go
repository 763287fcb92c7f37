package model

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ollama/ollama/api"

	"lunatui/config"
	"lunatui/storage"
)

// StreamProgressMsg signals that a frame changed the store; the view should
// re-read the conversation.
type StreamProgressMsg struct{}

// StreamDoneMsg signals normal completion of a send.
type StreamDoneMsg struct {
	TimingSeconds float64
}

// StreamErrorMsg signals a failed send. The assistant placeholder has
// already been marked with the error status.
type StreamErrorMsg struct {
	Err error
}

// PingResultMsg carries the startup health probe result.
type PingResultMsg struct {
	Err error
}

const chatTimeout = 120 * time.Second

// buildChatMessages assembles the outbound payload: optional system prompt,
// then the prior history (role and content only), then the new user turn.
func buildChatMessages(history []storage.Message, systemPrompt, userText string) []api.Message {
	var messages []api.Message

	if systemPrompt != "" {
		messages = append(messages, api.Message{
			Role:    "system",
			Content: systemPrompt,
		})
	}

	for _, msg := range history {
		if msg.Role == storage.RoleUser || msg.Role == storage.RoleAssistant {
			messages = append(messages, api.Message{
				Role:    msg.Role,
				Content: msg.Content,
			})
		}
	}

	messages = append(messages, api.Message{
		Role:    "user",
		Content: userText,
	})

	return messages
}

// StartSend accepts or rejects a send. Empty or whitespace-only input, a
// send already in flight, and offline mode are all no-ops (nil command).
// On acceptance the user message and the pending assistant placeholder are
// in the store before this returns.
func (m *Model) StartSend(input string) tea.Cmd {
	userText := strings.TrimSpace(input)
	if userText == "" || m.Loading {
		return nil
	}
	if m.Client == nil {
		m.LastError = "Not connected to an inference server."
		return nil
	}

	// Payload is built from the history as it was before this turn
	history := m.History.All()
	payload := buildChatMessages(history, m.SystemPrompt, userText)

	assistantID := storage.NewMessageID()

	if err := m.History.Append(storage.Message{
		ID:      storage.NewMessageID(),
		Role:    storage.RoleUser,
		Content: userText,
		Status:  storage.StatusComplete,
	}); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Model] failed to persist user message: %v", err)
	}

	if err := m.History.Append(storage.Message{
		ID:     assistantID,
		Role:   storage.RoleAssistant,
		Status: storage.StatusPending,
	}); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[Model] failed to persist placeholder: %v", err)
	}

	m.Loading = true
	m.LastError = ""
	m.events = make(chan tea.Msg, 64)

	return tea.Batch(m.streamChat(payload, assistantID), m.WaitForStream())
}

// streamChat drives the request/decode/reconcile cycle in the command
// goroutine. Progress flows through the events channel; the terminal
// Done/Error message is the command's own result.
func (m *Model) streamChat(payload []api.Message, assistantID string) tea.Cmd {
	client := m.Client
	store := m.History
	events := m.events

	return func() tea.Msg {
		defer close(events)

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] send started - %d payload messages", len(payload))
		}

		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()

		rec := NewReconciler(store, assistantID)

		err := client.ChatStream(ctx, payload, func(frame api.ChatResponse) error {
			changed, err := rec.Apply(frame)
			if err != nil {
				return err
			}
			if changed {
				// Drop when the view is behind; it re-reads the whole
				// store on every progress message anyway
				select {
				case events <- StreamProgressMsg{}:
				default:
				}
			}
			return nil
		})

		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[Model] send failed: %v", err)
			}
			if ferr := rec.Fail(); ferr != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[Model] failed to mark message errored: %v", ferr)
			}
			return StreamErrorMsg{Err: err}
		}

		// Stream ended without a done frame; settle the placeholder
		if !rec.Done() {
			if ferr := rec.Finalize(); ferr != nil && config.DebugLog != nil {
				config.DebugLog.Printf("[Model] failed to finalize message: %v", ferr)
			}
		}

		if config.DebugLog != nil {
			config.DebugLog.Printf("[Model] send complete - timing %.2fs", rec.TimingSeconds())
		}

		return StreamDoneMsg{TimingSeconds: rec.TimingSeconds()}
	}
}

// WaitForStream blocks on the next progress event. Returns nil once the
// stream goroutine has closed the channel.
func (m *Model) WaitForStream() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

// FinishSend records the terminal state of a send and returns the machine
// to idle.
func (m *Model) FinishSend(err error) {
	m.Loading = false
	if err != nil {
		m.LastError = err.Error()
	}
}

// ClearConversation wipes the live conversation and its durable record.
func (m *Model) ClearConversation() error {
	m.LastError = ""
	return m.History.Clear()
}

// PingServer probes the inference server in the background.
func (m *Model) PingServer() tea.Cmd {
	client := m.Client
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return PingResultMsg{Err: client.Ping(ctx)}
	}
}
