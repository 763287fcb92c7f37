package model

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ollama/ollama/api"

	"lunatui/config"
	"lunatui/ollama"
	"lunatui/storage"
)

// fakeChatClient scripts the transport: it emits the configured frames and
// then the configured error, recording what it was asked to send.
type fakeChatClient struct {
	frames   []api.ChatResponse
	err      error
	title    string
	titleErr error
	pingErr  error

	gotChat  []api.Message
	gotTitle []api.Message
}

func (f *fakeChatClient) ChatStream(ctx context.Context, messages []api.Message, fn ollama.FrameFunc) error {
	f.gotChat = messages
	for _, frame := range f.frames {
		if err := fn(frame); err != nil {
			return err
		}
		if frame.Done {
			return nil
		}
	}
	return f.err
}

func (f *fakeChatClient) GenerateTitle(ctx context.Context, history []api.Message) (string, error) {
	f.gotTitle = history
	return f.title, f.titleErr
}

func (f *fakeChatClient) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeChatClient) GetModel() string {
	return "fake-model"
}

func newTestModel(t *testing.T, client ChatClient) *Model {
	t.Helper()
	history, err := storage.NewHistoryStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	cfg := &config.Config{
		DefaultModel:   "fake-model",
		ExportUsername: "bippy",
	}
	return NewModel(cfg, client, history, nil, nil, "test")
}

// runSend executes the command StartSend returned, draining the progress
// events, and returns the terminal stream message.
func runSend(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("StartSend returned nil for a valid send")
	}

	batch, ok := cmd().(tea.BatchMsg)
	if !ok {
		t.Fatal("expected a batched command")
	}

	var terminal tea.Msg
	for _, c := range batch {
		for c != nil {
			switch msg := c().(type) {
			case StreamDoneMsg, StreamErrorMsg:
				terminal = msg
				c = nil
			case StreamProgressMsg:
				// Re-invoke the wait command, the way the view would
			default:
				c = nil
			}
		}
	}
	if terminal == nil {
		t.Fatal("no terminal stream message produced")
	}
	return terminal
}

func TestStartSendRejectsBlankInput(t *testing.T) {
	m := newTestModel(t, &fakeChatClient{})
	for _, input := range []string{"", "   ", "\n\t"} {
		if cmd := m.StartSend(input); cmd != nil {
			t.Errorf("StartSend(%q) accepted", input)
		}
	}
	if m.History.Len() != 0 {
		t.Errorf("blank input appended %d messages", m.History.Len())
	}
}

func TestStartSendRejectsWhileInFlight(t *testing.T) {
	m := newTestModel(t, &fakeChatClient{})
	m.Loading = true
	if cmd := m.StartSend("hello"); cmd != nil {
		t.Error("StartSend accepted while in flight")
	}
	if m.History.Len() != 0 {
		t.Error("rejected send must not touch the store")
	}
}

func TestStartSendOffline(t *testing.T) {
	m := newTestModel(t, nil)
	if cmd := m.StartSend("hello"); cmd != nil {
		t.Error("StartSend accepted with no client")
	}
	if m.LastError == "" {
		t.Error("offline send should surface an error")
	}
}

func TestSendSuccess(t *testing.T) {
	client := &fakeChatClient{
		frames: []api.ChatResponse{
			{Message: api.Message{Role: "assistant", Content: "Hel"}},
			{Message: api.Message{Role: "assistant", Content: "lo"}},
			{
				Message: api.Message{Role: "assistant", Content: "!"},
				Done:    true,
				Metrics: api.Metrics{PromptEvalDuration: 3 * time.Second},
			},
		},
	}
	m := newTestModel(t, client)
	m.SystemPrompt = "you are terse"

	cmd := m.StartSend("  hi there  ")

	// User message and placeholder are in the store before the command runs.
	msgs := m.History.All()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages after accept, want 2", len(msgs))
	}
	if msgs[0].Role != storage.RoleUser || msgs[0].Content != "hi there" || msgs[0].Status != storage.StatusComplete {
		t.Errorf("user message: %+v", msgs[0])
	}
	if msgs[1].Role != storage.RoleAssistant || msgs[1].Status != storage.StatusPending {
		t.Errorf("placeholder: %+v", msgs[1])
	}
	if !m.InFlight() {
		t.Error("model should be in flight after accept")
	}

	terminal := runSend(t, cmd)
	done, ok := terminal.(StreamDoneMsg)
	if !ok {
		t.Fatalf("got %T, want StreamDoneMsg", terminal)
	}
	if done.TimingSeconds != 3.0 {
		t.Errorf("timing: got %v, want 3.0", done.TimingSeconds)
	}

	// Payload: system prompt plus the new user turn, trimmed.
	if len(client.gotChat) != 2 {
		t.Fatalf("payload: got %d messages, want 2", len(client.gotChat))
	}
	if client.gotChat[0].Role != "system" || client.gotChat[0].Content != "you are terse" {
		t.Errorf("system message: %+v", client.gotChat[0])
	}
	if client.gotChat[1].Role != "user" || client.gotChat[1].Content != "hi there" {
		t.Errorf("user turn: %+v", client.gotChat[1])
	}

	m.FinishSend(nil)
	if m.InFlight() {
		t.Error("FinishSend should return the model to idle")
	}

	final := m.History.All()
	if final[1].Content != "Hello!" {
		t.Errorf("assistant content: got %q", final[1].Content)
	}
	if final[1].Status != storage.StatusComplete {
		t.Errorf("assistant status: got %q", final[1].Status)
	}
	if final[1].TimingSeconds != 3.0 {
		t.Errorf("assistant timing: got %v", final[1].TimingSeconds)
	}
}

func TestSendCarriesHistory(t *testing.T) {
	client := &fakeChatClient{
		frames: []api.ChatResponse{
			{Message: api.Message{Role: "assistant", Content: "two"}, Done: true},
		},
	}
	m := newTestModel(t, client)

	m.History.Append(storage.Message{ID: "u1", Role: storage.RoleUser, Content: "one?", Status: storage.StatusComplete})
	m.History.Append(storage.Message{ID: "a1", Role: storage.RoleAssistant, Content: "one.", Status: storage.StatusComplete})

	runSend(t, m.StartSend("two?"))

	// No system prompt: prior turns then the new one.
	want := []struct{ role, content string }{
		{"user", "one?"},
		{"assistant", "one."},
		{"user", "two?"},
	}
	if len(client.gotChat) != len(want) {
		t.Fatalf("payload: got %d messages, want %d", len(client.gotChat), len(want))
	}
	for i, w := range want {
		if client.gotChat[i].Role != w.role || client.gotChat[i].Content != w.content {
			t.Errorf("payload[%d]: got %+v, want %+v", i, client.gotChat[i], w)
		}
	}
}

func TestSendErrorMarksPlaceholder(t *testing.T) {
	client := &fakeChatClient{
		frames: []api.ChatResponse{
			{Message: api.Message{Role: "assistant", Content: "par"}},
			{Message: api.Message{Role: "assistant", Content: "tial"}},
		},
		err: errors.New("connection reset"),
	}
	m := newTestModel(t, client)

	terminal := runSend(t, m.StartSend("hi"))
	errMsg, ok := terminal.(StreamErrorMsg)
	if !ok {
		t.Fatalf("got %T, want StreamErrorMsg", terminal)
	}

	m.FinishSend(errMsg.Err)
	if m.LastError == "" {
		t.Error("FinishSend with error should set LastError")
	}
	if m.InFlight() {
		t.Error("model should be idle after a failed send")
	}

	msgs := m.History.All()
	if msgs[1].Status != storage.StatusError {
		t.Errorf("placeholder status: got %q", msgs[1].Status)
	}
	if msgs[1].Content != "partial" {
		t.Errorf("partial content lost: got %q", msgs[1].Content)
	}

	// The machine accepts the next send.
	if cmd := m.StartSend("again"); cmd == nil {
		t.Error("send after failure rejected")
	}
}

func TestSendEOFWithoutDoneFinalizes(t *testing.T) {
	client := &fakeChatClient{
		frames: []api.ChatResponse{
			{Message: api.Message{Role: "assistant", Content: "cut off"}},
		},
	}
	m := newTestModel(t, client)

	terminal := runSend(t, m.StartSend("hi"))
	if _, ok := terminal.(StreamDoneMsg); !ok {
		t.Fatalf("got %T, want StreamDoneMsg", terminal)
	}

	msgs := m.History.All()
	if msgs[1].Status != storage.StatusComplete {
		t.Errorf("status: got %q, want complete after EOF", msgs[1].Status)
	}
	if msgs[1].Content != "cut off" {
		t.Errorf("content: got %q", msgs[1].Content)
	}
}

// During the whole send, the store never holds more than one pending
// message, and the pending message is always the tail.
func TestAtMostOnePending(t *testing.T) {
	client := &fakeChatClient{
		frames: []api.ChatResponse{
			{Message: api.Message{Role: "assistant", Content: "a"}},
			{Message: api.Message{Role: "assistant", Content: "b"}, Done: true},
		},
	}
	m := newTestModel(t, client)

	check := func(msgs []storage.Message) {
		pending := 0
		for i, msg := range msgs {
			if msg.Status == storage.StatusPending {
				pending++
				if i != len(msgs)-1 {
					t.Errorf("pending message at index %d of %d", i, len(msgs))
				}
			}
		}
		if pending > 1 {
			t.Errorf("%d pending messages", pending)
		}
	}

	m.History.Subscribe(check)

	runSend(t, m.StartSend("one"))
	m.FinishSend(nil)
	runSend(t, m.StartSend("two"))
	m.FinishSend(nil)

	check(m.History.All())
}

func TestWaitForStreamClosedChannel(t *testing.T) {
	m := newTestModel(t, &fakeChatClient{
		frames: []api.ChatResponse{
			{Message: api.Message{Role: "assistant", Content: "x"}, Done: true},
		},
	})

	runSend(t, m.StartSend("hi"))

	// The stream goroutine has closed the channel; further waits must not
	// hang or fabricate messages.
	if msg := m.WaitForStream()(); msg != nil {
		t.Errorf("got %v from closed channel, want nil", msg)
	}
}

func TestClearConversation(t *testing.T) {
	m := newTestModel(t, &fakeChatClient{})
	m.History.Append(storage.Message{ID: "u1", Role: storage.RoleUser, Content: "hi", Status: storage.StatusComplete})
	m.LastError = "old failure"

	if err := m.ClearConversation(); err != nil {
		t.Fatalf("ClearConversation: %v", err)
	}
	if m.History.Len() != 0 {
		t.Error("history not cleared")
	}
	if m.LastError != "" {
		t.Error("LastError not reset")
	}
}
