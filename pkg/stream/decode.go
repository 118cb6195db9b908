package stream

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"

	"github.com/liftwise/coach-agent/pkg/blocks"
)

// Decoder pulls frames from a byte stream on demand. Malformed frames
// are skipped, not fatal: a wire hiccup must not abort an otherwise
// healthy conversation.
type Decoder struct {
	r      io.Reader
	buf    []byte
	tmp    []byte
	eof    bool
	closed bool
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 0, 4096),
		tmp: make([]byte, 4096),
	}
}

// Next returns the next well-formed frame, or io.EOF when the stream
// ends. Frames with no event name or an unparsable payload are dropped
// and the scan continues with the following frame.
func (d *Decoder) Next() (*Frame, error) {
	if d.closed {
		return nil, io.EOF
	}
	for {
		if frame, ok := d.nextBuffered(); ok {
			return frame, nil
		}
		if d.eof {
			return nil, io.EOF
		}

		n, err := d.r.Read(d.tmp)
		if n > 0 {
			d.buf = append(d.buf, d.tmp[:n]...)
		}
		if err == io.EOF {
			d.eof = true
			continue
		}
		if err != nil {
			return nil, err
		}
	}
}

// frameBoundary locates the earliest blank-line separator, LF or CRLF
// framed. The encoder emits bare LF, but a decoding peer may not.
func frameBoundary(buf []byte) (end, width int) {
	lf := bytes.Index(buf, []byte("\n\n"))
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	switch {
	case crlf != -1 && (lf == -1 || crlf < lf):
		return crlf, 4
	default:
		return lf, 2
	}
}

// nextBuffered scans already-buffered bytes for a complete frame.
func (d *Decoder) nextBuffered() (*Frame, bool) {
	for {
		end, width := frameBoundary(d.buf)
		if end == -1 {
			// A trailing frame without the final blank line still counts
			// once the stream has ended.
			if d.eof && len(bytes.TrimSpace(d.buf)) > 0 {
				raw := d.buf
				d.buf = nil
				if frame := parseFrame(raw); frame != nil {
					return frame, true
				}
			}
			return nil, false
		}
		raw := d.buf[:end]
		d.buf = d.buf[end+width:]
		if frame := parseFrame(raw); frame != nil {
			return frame, true
		}
		// Schema check failed; drop and keep scanning.
	}
}

// parseFrame extracts event and data lines from one raw frame. Returns
// nil when the frame fails the schema check.
func parseFrame(raw []byte) *Frame {
	var event string
	var dataLines []string

	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// Unknown field names are ignored per the event-stream convention.
	}

	if event == "" || len(dataLines) == 0 {
		return nil
	}
	payload := strings.Join(dataLines, "\n")
	if !json.Valid([]byte(payload)) {
		return nil
	}
	return &Frame{Event: event, Data: json.RawMessage(payload)}
}

// Blocks decodes a blocks-event payload, dropping individual blocks
// that fail their own schema check.
func (f *Frame) Blocks() ([]blocks.Block, bool) {
	if f.Event != EventBlocks {
		return nil, false
	}
	var batch []blocks.Block
	if err := json.Unmarshal(f.Data, &batch); err != nil {
		return nil, false
	}
	kept := batch[:0]
	for _, b := range batch {
		if b.Valid() {
			kept = append(kept, b)
		}
	}
	return kept, true
}

// Close releases the underlying reader. Safe to call at any point,
// including mid-stream when the caller abandons the read.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.buf = nil
	if closer, ok := d.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
