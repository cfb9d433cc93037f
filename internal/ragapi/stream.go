package ragapi

import (
	"errors"
	"io"
	"strings"
)

const readBufferSize = 4096

// AnswerStream yields decoded answer fragments in arrival order.
// It is finite and cannot be restarted; ask again for a new stream.
type AnswerStream struct {
	body    io.ReadCloser
	decoder *ChunkDecoder
	buf     []byte
	text    strings.Builder
	done    bool
	err     error
}

// NewAnswerStream wraps a raw text body
func NewAnswerStream(body io.ReadCloser) *AnswerStream {
	return &AnswerStream{
		body:    body,
		decoder: NewChunkDecoder(),
		buf:     make([]byte, readBufferSize),
	}
}

// Next blocks for the next fragment.
// It returns io.EOF once the service closes the stream cleanly; any other
// error means the transfer was interrupted. Text still holds everything
// received before either case.
func (s *AnswerStream) Next() (string, error) {
	for !s.done {
		n, readErr := s.body.Read(s.buf)

		final := readErr != nil
		fragment, decErr := s.decoder.Decode(s.buf[:n], final)
		if decErr != nil && readErr == nil {
			readErr = decErr
			final = true
		}
		if final {
			s.done = true
			if errors.Is(readErr, io.EOF) {
				s.err = io.EOF
			} else {
				s.err = readErr
			}
		}

		if fragment != "" {
			s.text.WriteString(fragment)
			return fragment, nil
		}
	}
	return "", s.err
}

// Text returns the concatenation of all fragments returned so far
func (s *AnswerStream) Text() string {
	return s.text.String()
}

// Close releases the underlying connection
func (s *AnswerStream) Close() error {
	return s.body.Close()
}
