// Package stream frames ordered block batches over a text event-stream
// transport. Encode and decode are independent of any real socket so
// the protocol is testable against plain byte buffers.
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/liftwise/coach-agent/pkg/blocks"
)

// Event names used on the wire.
const (
	EventBlocks = "blocks"
	EventResult = "result"
	EventDone   = "done"
)

// Frame is one decoded wire event: a name plus its JSON payload.
type Frame struct {
	Event string
	Data  json.RawMessage
}

// EncodeFrame renders one event as `event: <name>` followed by one
// `data:` line per payload line and a terminating blank line.
func EncodeFrame(event string, payload any) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("event name must not be empty")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
	}

	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(event)
	buf.WriteByte('\n')
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Writer pushes frames to an underlying writer, flushing after each
// frame when the writer supports it (an HTTP response does).
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: flusher}
}

// WriteFrame encodes and flushes one event.
func (w *Writer) WriteFrame(event string, payload any) error {
	frame, err := EncodeFrame(event, payload)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", event, err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}

// WriteBlocks pushes one batch of display blocks.
func (w *Writer) WriteBlocks(batch []blocks.Block) error {
	return w.WriteFrame(EventBlocks, batch)
}

// WriteResult pushes the final tool result payload.
func (w *Writer) WriteResult(payload any) error {
	return w.WriteFrame(EventResult, payload)
}

// WriteDone signals end-of-turn.
func (w *Writer) WriteDone() error {
	return w.WriteFrame(EventDone, map[string]any{"done": true})
}
