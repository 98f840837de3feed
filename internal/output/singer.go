package output

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/goccy/go-json"
)

// Singer writes newline-delimited protocol messages, normally to stdout.
type Singer struct {
	mu  sync.Mutex
	buf *bufio.Writer
	enc *json.Encoder
}

func NewSinger(w io.Writer) *Singer {
	buf := bufio.NewWriter(w)
	return &Singer{
		buf: buf,
		enc: json.NewEncoder(buf),
	}
}

// Emit encodes msg; STATE messages flush so a consumer never sees a bookmark
// before the records it covers.
func (s *Singer) Emit(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.enc.Encode(msg); err != nil {
		return fmt.Errorf("write %s message: %w", msg.Type, err)
	}
	if msg.Type == TypeState {
		if err := s.buf.Flush(); err != nil {
			return fmt.Errorf("flush output: %w", err)
		}
	}
	return nil
}

func (s *Singer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Flush()
}
