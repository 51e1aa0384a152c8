package http

import (
	"errors"
	"io"
	"net/http"
)

// DefaultChunkSize is used by Emit when chunkSize is not positive.
const DefaultChunkSize = 4096

// Emit writes res to w: headers, status line and the body read from the
// start in chunks of chunkSize bytes. Bodies of empty responses are skipped.
// Writing stops early when the client's context is done.
func Emit(w http.ResponseWriter, r *http.Request, res *Response, chunkSize int) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	h := w.Header()
	for k, vs := range res.header {
		for _, v := range vs {
			h.Add(k, v)
		}
	}
	w.WriteHeader(res.status)

	if res.IsEmpty() {
		return nil
	}

	body := res.body
	if err := body.Rewind(); err != nil {
		return err
	}

	buf := make([]byte, chunkSize)
	for !body.EOF() {
		if r != nil && r.Context().Err() != nil {
			return r.Context().Err()
		}
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}
