package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewID produces an opaque id of the form prefix_<unix-millis>_<random>.
// The uuid suffix keeps ids collision-resistant without any shared counter,
// so concurrent callers need no coordination.
func NewID(prefix string) string {
	if prefix == "" {
		prefix = "convo"
	}
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix)
}

// NewMessageID returns an id for a conversation message.
func NewMessageID() string {
	return NewID("msg")
}
