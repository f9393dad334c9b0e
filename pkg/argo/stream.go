package argo

import (
	"io"
	"unicode/utf8"
)

// chunkReadSize is how many bytes each backend read requests.
const chunkReadSize = 1024

// ChunkReader yields the raw text chunks of a streaming chat response.
//
// The backend writes plain UTF-8 with no framing, so a fixed-size read can
// land in the middle of a multi-byte rune. The reader holds incomplete
// trailing bytes until the next read completes them, and flushes whatever
// remains when the stream ends. Every byte the backend sends is returned
// exactly once, so concatenating all chunks reproduces the stream verbatim.
type ChunkReader struct {
	body   io.ReadCloser
	buf    []byte
	rem    []byte // incomplete trailing rune bytes carried between reads
	err    error
	closed bool
}

// NewChunkReader wraps a streaming response body.
func NewChunkReader(body io.ReadCloser) *ChunkReader {
	return &ChunkReader{body: body, buf: make([]byte, chunkReadSize)}
}

// Next returns the next text chunk. It returns io.EOF after the final chunk
// and a classified *BackendError when the stream dies mid-read. Carried
// bytes are flushed before the error surfaces, so no input is lost.
func (r *ChunkReader) Next() (string, error) {
	if r.err != nil {
		if len(r.rem) > 0 {
			out := string(r.rem)
			r.rem = nil
			return out, nil
		}
		return "", r.err
	}

	for {
		n, err := r.body.Read(r.buf)
		if n > 0 {
			data := append(r.rem, r.buf[:n]...)
			r.rem = nil
			if cut := completePrefix(data); cut < len(data) {
				r.rem = append([]byte(nil), data[cut:]...)
				data = data[:cut]
			}
			if len(data) > 0 {
				if err != nil {
					r.setErr(err)
				}
				return string(data), nil
			}
		}
		if err != nil {
			r.setErr(err)
			if len(r.rem) > 0 {
				out := string(r.rem)
				r.rem = nil
				return out, nil
			}
			return "", r.err
		}
	}
}

// Close releases the underlying response body. Safe to call more than once;
// only the first call closes the body.
func (r *ChunkReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.body.Close()
}

func (r *ChunkReader) setErr(err error) {
	if err == io.EOF {
		r.err = io.EOF
		return
	}
	r.err = classifyNetworkError(err)
}

// completePrefix returns the length of the longest prefix of b that does not
// end inside a multi-byte rune. Bytes that are not valid UTF-8 at all pass
// through untouched.
func completePrefix(b []byte) int {
	end := len(b)
	for i := end - 1; i >= 0 && end-i <= utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:end]) {
				return end
			}
			return i
		}
	}
	return end
}
