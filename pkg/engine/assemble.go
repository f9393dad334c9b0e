package engine

import (
	"io"
	"strings"

	"github.com/argonaut-dev/argonaut/pkg/argo"
)

// Assemble drains a backend stream into the complete response text. The
// buffer is bounded: a stream exceeding limit bytes aborts with a
// *argo.SizeLimitError and no partial text, so callers never see a
// truncated completion presented as a finished one.
func Assemble(r *argo.ChunkReader, limit int64) (string, error) {
	var sb strings.Builder
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return "", err
		}
		if int64(sb.Len())+int64(len(chunk)) > limit {
			return "", &argo.SizeLimitError{Limit: limit}
		}
		sb.WriteString(chunk)
	}
}
