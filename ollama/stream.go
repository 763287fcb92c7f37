package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/ollama/ollama/api"

	"lunatui/config"
)

// FrameFunc receives one decoded frame of a streamed chat response.
type FrameFunc func(api.ChatResponse) error

// FrameReader turns an arbitrarily chunked byte stream into a sequence of
// newline-delimited JSON frames. Blank or malformed lines are skipped, never
// fatal; a trailing segment without a final newline is retained in the buffer
// and parsed when the stream ends.
type FrameReader struct {
	reader *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{
		reader: bufio.NewReader(r),
	}
}

// Process feeds frames to fn in arrival order. It returns as soon as a frame
// with done:true has been handled - the server does not guarantee that frame
// is the last byte of the stream.
func (fr *FrameReader) Process(ctx context.Context, fn FrameFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			frame, err := fr.next()
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return &ClientError{Kind: KindConnection, Message: "stream read failed", Cause: err}
			}

			if frame == nil {
				continue
			}

			if err := fn(*frame); err != nil {
				return err
			}
			if frame.Done {
				return nil
			}
		}
	}
}

// next reads one delimited segment and parses it. A nil frame with nil error
// means the segment was skipped.
func (fr *FrameReader) next() (*api.ChatResponse, error) {
	line, err := fr.reader.ReadBytes('\n')

	segment := bytes.TrimSpace(line)
	if len(segment) == 0 {
		if err != nil {
			return nil, err
		}
		return nil, nil
	}

	// A non-EOF read error loses whatever partial segment came with it;
	// the caller surfaces the transport failure.
	if err != nil && err != io.EOF {
		return nil, err
	}

	var frame api.ChatResponse
	if jsonErr := json.Unmarshal(segment, &frame); jsonErr != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[FrameReader] skipping malformed frame: %v", jsonErr)
		}
		return nil, nil
	}

	return &frame, nil
}
