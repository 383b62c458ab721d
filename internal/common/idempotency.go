package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem rejects replays of write requests carrying the same Idempotency-Key.
// Keys are scoped by Scope so the same client key can be reused once the
// scope changes.
type Idem struct {
	R      *redis.Client
	TTL    time.Duration
	Prefix string
	Scope  func(*http.Request) string
}

// Key returns the Redis key recording header within scope.
func (i Idem) Key(scope, header string) string {
	sum := sha256.Sum256([]byte(scope + "\x00" + header))
	return i.Prefix + "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics. Requests without the header pass through.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		scope := ""
		if i.Scope != nil {
			scope = i.Scope(r)
		}
		key := i.Key(scope, header)
		ok, err := i.R.SetNX(r.Context(), key, "1", i.ttl()).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", map[string]string{"idempotencyKey": header})
			return
		}
		defer func() {
			_ = i.R.Expire(context.Background(), key, i.ttl()).Err()
		}()
		next.ServeHTTP(w, r)
	})
}

func (i Idem) ttl() time.Duration {
	if i.TTL <= 0 {
		return 10 * time.Minute
	}
	return i.TTL
}
