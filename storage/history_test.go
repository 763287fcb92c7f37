package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*HistoryStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewHistoryStore(dir)
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	return s, dir
}

func TestHistoryStoreEmptyOnFirstRun(t *testing.T) {
	s, _ := newTestStore(t)
	if s.Len() != 0 {
		t.Errorf("got %d messages, want 0", s.Len())
	}
}

func TestHistoryStoreWriteThrough(t *testing.T) {
	s, dir := newTestStore(t)

	msg := Message{ID: NewMessageID(), Role: RoleUser, Content: "hello", Status: StatusComplete}
	if err := s.Append(msg); err != nil {
		t.Fatalf("Append: %v", err)
	}

	// Every mutation must be on disk before the call returns.
	reopened, err := NewHistoryStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.All()
	if len(got) != 1 {
		t.Fatalf("got %d messages after reopen, want 1", len(got))
	}
	if got[0].ID != msg.ID || got[0].Content != "hello" {
		t.Errorf("got %+v, want %+v", got[0], msg)
	}
}

func TestHistoryStoreCorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, historyFileName)
	if err := os.WriteFile(path, []byte("{not valid json"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := NewHistoryStore(dir)
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("corrupt file: got %d messages, want 0", s.Len())
	}

	// The store must still accept new messages afterwards.
	if err := s.Append(Message{ID: "m1", Role: RoleUser, Content: "hi", Status: StatusComplete}); err != nil {
		t.Fatalf("Append after corrupt load: %v", err)
	}
}

func TestHistoryStoreUpdateByID(t *testing.T) {
	s, _ := newTestStore(t)

	s.Append(Message{ID: "a1", Role: RoleAssistant, Content: "", Status: StatusPending})

	content := "partial"
	if err := s.UpdateByID("a1", MessagePatch{Content: &content}); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}

	got := s.All()[0]
	if got.Content != "partial" {
		t.Errorf("content: got %q, want %q", got.Content, "partial")
	}
	if got.Status != StatusPending {
		t.Errorf("status changed by content-only patch: got %q", got.Status)
	}

	done := StatusComplete
	timing := 2.5
	if err := s.UpdateByID("a1", MessagePatch{Status: &done, TimingSeconds: &timing}); err != nil {
		t.Fatalf("UpdateByID: %v", err)
	}
	got = s.All()[0]
	if got.Status != StatusComplete || got.TimingSeconds != 2.5 {
		t.Errorf("got %+v", got)
	}
	if got.Content != "partial" {
		t.Errorf("status-only patch clobbered content: got %q", got.Content)
	}
}

func TestHistoryStoreUpdateUnknownIDIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	s.Append(Message{ID: "a1", Role: RoleUser, Content: "hi", Status: StatusComplete})

	content := "changed"
	if err := s.UpdateByID("nope", MessagePatch{Content: &content}); err != nil {
		t.Fatalf("UpdateByID unknown id: %v", err)
	}
	if got := s.All()[0].Content; got != "hi" {
		t.Errorf("unknown id mutated store: got %q", got)
	}
}

func TestHistoryStoreClear(t *testing.T) {
	s, dir := newTestStore(t)
	s.Append(Message{ID: "a1", Role: RoleUser, Content: "hi", Status: StatusComplete})

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("got %d messages after clear, want 0", s.Len())
	}
	if _, err := os.Stat(filepath.Join(dir, historyFileName)); !os.IsNotExist(err) {
		t.Error("history file should be removed by Clear")
	}

	// Clearing an already-empty store is fine.
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestHistoryStoreObservers(t *testing.T) {
	s, _ := newTestStore(t)

	var seen [][]Message
	s.Subscribe(func(snapshot []Message) {
		seen = append(seen, snapshot)
	})

	s.Append(Message{ID: "a1", Role: RoleUser, Content: "hi", Status: StatusComplete})
	status := StatusError
	s.UpdateByID("a1", MessagePatch{Status: &status})
	s.Clear()

	if len(seen) != 3 {
		t.Fatalf("observer called %d times, want 3", len(seen))
	}
	if len(seen[0]) != 1 || seen[0][0].ID != "a1" {
		t.Errorf("first snapshot: %+v", seen[0])
	}
	if seen[1][0].Status != StatusError {
		t.Errorf("second snapshot status: %q", seen[1][0].Status)
	}
	if len(seen[2]) != 0 {
		t.Errorf("third snapshot should be empty, got %d", len(seen[2]))
	}
}

// Observers may call back into the store without deadlocking.
func TestHistoryStoreObserverReentry(t *testing.T) {
	s, _ := newTestStore(t)

	s.Subscribe(func(snapshot []Message) {
		_ = s.Len()
	})

	done := make(chan struct{})
	go func() {
		s.Append(Message{ID: "a1", Role: RoleUser, Content: "hi", Status: StatusComplete})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("observer re-entry deadlocked")
	}
}
