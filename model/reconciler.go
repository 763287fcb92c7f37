package model

import (
	"strings"

	"github.com/ollama/ollama/api"

	"lunatui/storage"
)

// Reconciler projects decoded frames onto the store for one in-flight
// assistant message. Content accumulates across frames; the store always
// holds the full text so far, never a single token.
type Reconciler struct {
	store     *storage.HistoryStore
	messageID string

	content       strings.Builder
	done          bool
	timingSeconds float64
}

func NewReconciler(store *storage.HistoryStore, messageID string) *Reconciler {
	return &Reconciler{
		store:     store,
		messageID: messageID,
	}
}

// Apply folds one frame into the target message. Frames carrying neither
// content nor done:true change nothing, so redundant frames are harmless.
// Returns whether the store was updated.
func (r *Reconciler) Apply(frame api.ChatResponse) (bool, error) {
	if r.done {
		return false, nil
	}

	content := frame.Message.Content
	if content == "" && !frame.Done {
		return false, nil
	}

	r.content.WriteString(content)

	status := storage.StatusPending
	if frame.Done {
		r.done = true
		status = storage.StatusComplete
		if frame.PromptEvalDuration > 0 {
			r.timingSeconds = frame.PromptEvalDuration.Seconds()
		}
	}

	total := r.content.String()
	patch := storage.MessagePatch{
		Content: &total,
		Status:  &status,
	}
	if r.done && r.timingSeconds > 0 {
		patch.TimingSeconds = &r.timingSeconds
	}

	return true, r.store.UpdateByID(r.messageID, patch)
}

// Finalize marks the message complete when the transport ended without a
// done frame, so no pending message outlives its request.
func (r *Reconciler) Finalize() error {
	if r.done {
		return nil
	}
	r.done = true

	status := storage.StatusComplete
	return r.store.UpdateByID(r.messageID, storage.MessagePatch{Status: &status})
}

// Fail forces the message into the error state, keeping whatever content
// accumulated before the failure.
func (r *Reconciler) Fail() error {
	r.done = true

	status := storage.StatusError
	return r.store.UpdateByID(r.messageID, storage.MessagePatch{Status: &status})
}

// Done reports whether a done frame has been applied.
func (r *Reconciler) Done() bool {
	return r.done
}

// TimingSeconds returns the server-reported evaluation time, zero when the
// server reported none.
func (r *Reconciler) TimingSeconds() float64 {
	return r.timingSeconds
}
