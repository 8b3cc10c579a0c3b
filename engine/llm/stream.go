package llm

import (
	"bytes"
	"encoding/json"
)

// DoneSentinel is the payload that terminates an SSE completion stream.
const DoneSentinel = "[DONE]"

// StreamReducer reassembles newline-delimited SSE frames from arbitrary byte
// chunks. It is transport-independent: Feed accepts chunks exactly as read
// from the wire, including chunks that split a line mid-way, and returns the
// payloads of every `data: ` line completed so far.
type StreamReducer struct {
	buf []byte
}

// Feed appends a chunk and returns completed data payloads.
func (r *StreamReducer) Feed(chunk []byte) []string {
	r.buf = append(r.buf, chunk...)
	var frames []string
	for {
		idx := bytes.IndexByte(r.buf, '\n')
		if idx < 0 {
			return frames
		}
		line := r.buf[:idx]
		r.buf = r.buf[idx+1:]
		if payload, ok := dataPayload(line); ok {
			frames = append(frames, payload)
		}
	}
}

// Flush returns the payload of a trailing unterminated line, if any.
func (r *StreamReducer) Flush() []string {
	if len(r.buf) == 0 {
		return nil
	}
	line := r.buf
	r.buf = nil
	if payload, ok := dataPayload(line); ok {
		return []string{payload}
	}
	return nil
}

func dataPayload(line []byte) (string, bool) {
	line = bytes.TrimRight(line, "\r")
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return "", false
	}
	if !bytes.HasPrefix(trimmed, []byte("data:")) {
		return "", false
	}
	payload := bytes.TrimSpace(trimmed[len("data:"):])
	if len(payload) == 0 {
		return "", false
	}
	return string(payload), true
}

// StreamChunk is one parsed completion delta frame.
type StreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// ParseStreamChunk parses a data payload into a StreamChunk. Non-JSON
// payloads and the DONE sentinel yield ok == false and must be skipped, not
// treated as stream errors.
func ParseStreamChunk(payload string) (*StreamChunk, bool) {
	if payload == DoneSentinel {
		return nil, false
	}
	var chunk StreamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return nil, false
	}
	return &chunk, true
}

// DeltaContent returns the concatenated delta text of the chunk.
func (c *StreamChunk) DeltaContent() string {
	if c == nil || len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}
