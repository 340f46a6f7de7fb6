package audit

import (
	"encoding/json"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-invoice/internal/auth"
	"github.com/noah-isme/backend-invoice/internal/obs"
)

// HTTPRecorder writes an audit entry for every request passing through one of
// its middlewares, after the handler has answered.
type HTTPRecorder struct {
	Service   *Service
	OnError   func(error)
	ActorFunc func(*http.Request) Actor
}

// HTTPConfig describes the audited action of a route. The resource id is read
// from the ResourceIDParam URL parameter, or for creates from the last segment
// of the Location header written by the handler.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware returns a chi middleware recording cfg.Action.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if r.Service == nil || !r.Service.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			rec := obs.NewStatusRecorder(w)
			next.ServeHTTP(rec, req)

			status := rec.Status()
			err := r.Service.Record(req.Context(), r.actor(req), cfg.Action, cfg.ResourceType,
				resourceID(cfg, req, rec.Header()), req, status, metadata(cfg, req, status))
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func resourceID(cfg HTTPConfig, req *http.Request, h http.Header) string {
	if cfg.ResourceIDParam != "" {
		if id := chi.URLParam(req, cfg.ResourceIDParam); id != "" {
			return id
		}
	}
	if loc := h.Get("Location"); loc != "" {
		return path.Base(loc)
	}
	return ""
}

func metadata(cfg HTTPConfig, req *http.Request, status int) []byte {
	if cfg.MetadataFunc == nil {
		return nil
	}
	payload := cfg.MetadataFunc(req, status)
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

func (r HTTPRecorder) actor(req *http.Request) Actor {
	if r.ActorFunc != nil {
		return r.ActorFunc(req)
	}
	if p, ok := auth.PrincipalFrom(req.Context()); ok {
		return Actor{Kind: ActorKindClient, ID: p.ClientID}
	}
	return Actor{Kind: ActorKindAnonymous}
}
