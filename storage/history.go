package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lunatui/config"
)

// Status tracks the lifecycle of a message. Pending only ever applies to the
// assistant message currently being streamed; complete and error are terminal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusError    Status = "error"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents one turn of the conversation.
type Message struct {
	ID            string  `json:"id"`
	Role          string  `json:"role"`
	Content       string  `json:"content"`
	Status        Status  `json:"status"`
	TimingSeconds float64 `json:"timing_seconds,omitempty"`
}

// MessagePatch carries the fields an update may replace. Nil fields are
// left untouched.
type MessagePatch struct {
	Content       *string
	Status        *Status
	TimingSeconds *float64
}

// HistoryStore holds the live conversation and mirrors it to a single JSON
// file on every mutation, so partial assistant output survives a crash.
type HistoryStore struct {
	mu        sync.Mutex
	path      string
	messages  []Message
	observers []func([]Message)
}

const historyFileName = "history.json"

// NewHistoryStore opens the store backed by <dataDir>/history.json and loads
// whatever history is already there.
func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &HistoryStore{
		path: filepath.Join(dataDir, historyFileName),
	}
	s.Load()
	return s, nil
}

// Load restores the conversation from disk. A missing or corrupt file is
// treated as an empty history, never an error.
func (s *HistoryStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil

	data, err := os.ReadFile(s.path)
	if err != nil {
		return
	}

	var messages []Message
	if err := json.Unmarshal(data, &messages); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[HistoryStore] corrupt history at %s, starting empty: %v", s.path, err)
		}
		return
	}

	s.messages = messages
}

// Append inserts a message at the tail and persists.
func (s *HistoryStore) Append(msg Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	err := s.persistLocked()
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
	return err
}

// UpdateByID replaces the fields of the message matching id. Unknown ids are
// a silent no-op.
func (s *HistoryStore) UpdateByID(id string, patch MessagePatch) error {
	s.mu.Lock()

	found := false
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		found = true
		if patch.Content != nil {
			s.messages[i].Content = *patch.Content
		}
		if patch.Status != nil {
			s.messages[i].Status = *patch.Status
		}
		if patch.TimingSeconds != nil {
			s.messages[i].TimingSeconds = *patch.TimingSeconds
		}
		break
	}

	if !found {
		s.mu.Unlock()
		return nil
	}

	err := s.persistLocked()
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
	return err
}

// Clear empties the conversation and removes the durable record.
func (s *HistoryStore) Clear() error {
	s.mu.Lock()
	s.messages = nil
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		err = nil
	}
	snapshot, observers := s.snapshotLocked()
	s.mu.Unlock()

	notify(observers, snapshot)
	return err
}

// All returns a copy of the conversation in insertion order.
func (s *HistoryStore) All() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages.
func (s *HistoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Subscribe registers an observer invoked after every persisted change with
// a snapshot of the conversation.
func (s *HistoryStore) Subscribe(fn func([]Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *HistoryStore) persistLocked() error {
	data, err := json.MarshalIndent(s.messages, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// 0600 - conversation history is sensitive
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}

	return nil
}

func (s *HistoryStore) snapshotLocked() ([]Message, []func([]Message)) {
	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)
	observers := make([]func([]Message), len(s.observers))
	copy(observers, s.observers)
	return snapshot, observers
}

// Observers run outside the store lock so they may call back into the store.
func notify(observers []func([]Message), snapshot []Message) {
	for _, fn := range observers {
		fn(snapshot)
	}
}
