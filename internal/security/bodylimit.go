package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/noah-isme/pos-checkout/internal/common"
)

// DefaultBodyLimit bounds scan, reset and catalog payloads when Max is unset.
const DefaultBodyLimit int64 = 1 << 20

// BodyLimit buffers the request body up to Max bytes. Larger payloads are
// answered with 413 PAYLOAD_TOO_LARGE before the handler runs.
type BodyLimit struct {
	Max int64
}

func (b BodyLimit) limit() int64 {
	if b.Max <= 0 {
		return DefaultBodyLimit
	}
	return b.Max
}

// Middleware enforces the limit on declared and actual body sizes.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		limit := b.limit()
		if r.ContentLength > limit {
			tooLarge(w, limit)
			return
		}

		buf, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
		_ = r.Body.Close()
		if err != nil && !errors.Is(err, io.EOF) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unable to read payload", nil)
			return
		}
		if int64(len(buf)) > limit {
			tooLarge(w, limit)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(buf))
		r.ContentLength = int64(len(buf))
		next.ServeHTTP(w, r)
	})
}

func tooLarge(w http.ResponseWriter, limit int64) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large",
		map[string]string{"maxBytes": strconv.FormatInt(limit, 10)})
}
