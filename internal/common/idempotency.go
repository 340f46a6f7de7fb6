package common

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem provides an Idempotency-Key middleware backed by Redis. Completed responses are
// stored and replayed for the same key; a key whose request is still running yields 409.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
	// Scope namespaces keys, typically by company, so clients cannot collide.
	Scope func(*http.Request) string
}

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
}

func (c *captureWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *captureWriter) Write(b []byte) (int, error) {
	c.buf.Write(b)
	return c.ResponseWriter.Write(b)
}

func (i Idem) key(r *http.Request, header string) string {
	scope := ""
	if i.Scope != nil {
		scope = i.Scope(r)
	}
	return "idem:" + Sha256Hex(scope+"|"+r.Method+"|"+r.URL.Path+"|"+header)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := i.key(r, header)

		raw, err := i.R.Get(ctx, key+":resp").Bytes()
		switch {
		case err == nil:
			var stored storedResponse
			if jsonErr := json.Unmarshal(raw, &stored); jsonErr == nil {
				if stored.ContentType != "" {
					w.Header().Set("Content-Type", stored.ContentType)
				}
				w.Header().Set("Idempotent-Replay", "true")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}
		case !errors.Is(err, redis.Nil):
			idemStoreError(w, err)
			return
		}

		ok, err := i.R.SetNX(ctx, key, "locked", i.TTL).Result()
		if err != nil {
			idemStoreError(w, err)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "request with this idempotency key is in progress", nil)
			return
		}

		rec := &captureWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			// release the lock when the handler failed so the client can retry
			bg := context.Background()
			if rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(bg, key).Err()
				return
			}
			payload, err := json.Marshal(storedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.buf.Bytes(),
			})
			if err == nil {
				_ = i.R.Set(bg, key+":resp", payload, i.TTL).Err()
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

func idemStoreError(w http.ResponseWriter, err error) {
	JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
}
