package http

import (
	"errors"
	"io"
)

// Stream is the body abstraction shared by requests and responses.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker

	// EOF reports whether the read position is at the end of the stream.
	EOF() bool
	// Size returns the total number of bytes in the stream.
	Size() int64
	// Rewind seeks back to the start.
	Rewind() error
	// String returns the full contents regardless of position.
	String() string
}

var errNegativePosition = errors.New("http: negative stream position")

// Body is an in-memory Stream. Writes happen at the current position,
// overwriting or extending the contents.
type Body struct {
	buf []byte
	pos int64
}

// NewBody returns an empty body.
func NewBody() *Body { return &Body{} }

// NewBodyString returns a body holding s, positioned at the start.
func NewBodyString(s string) *Body { return &Body{buf: []byte(s)} }

func (b *Body) Read(p []byte) (int, error) {
	if b.pos >= int64(len(b.buf)) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(p, b.buf[b.pos:])
	b.pos += int64(n)
	return n, nil
}

func (b *Body) Write(p []byte) (int, error) {
	end := b.pos + int64(len(p))
	if end > int64(len(b.buf)) {
		grown := make([]byte, end)
		copy(grown, b.buf)
		b.buf = grown
	}
	copy(b.buf[b.pos:], p)
	b.pos = end
	return len(p), nil
}

func (b *Body) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.pos + offset
	case io.SeekEnd:
		abs = int64(len(b.buf)) + offset
	default:
		return 0, errors.New("http: invalid whence")
	}
	if abs < 0 {
		return 0, errNegativePosition
	}
	b.pos = abs
	return abs, nil
}

func (b *Body) EOF() bool { return b.pos >= int64(len(b.buf)) }

func (b *Body) Size() int64 { return int64(len(b.buf)) }

func (b *Body) Rewind() error {
	_, err := b.Seek(0, io.SeekStart)
	return err
}

func (b *Body) String() string { return string(b.buf) }
