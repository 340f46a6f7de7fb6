package queue

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-invoice/internal/common"
)

// Inspector is the subset of *asynq.Inspector used by the admin endpoints.
type Inspector interface {
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunTask(queue, id string) error
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// AdminHandler exposes archived task listing, replay and queue stats.
type AdminHandler struct {
	Inspector Inspector
	Queue     string
	PageSize  int
	Logger    zerolog.Logger
}

// ListArchived returns archived tasks, optionally filtered by kind.
func (h *AdminHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue inspector unavailable", nil)
		return
	}
	page, perPage := common.ParsePagination(r, h.pageSize())
	kind := strings.TrimSpace(r.URL.Query().Get("kind"))

	tasks, err := h.Inspector.ListArchivedTasks(h.queue(), asynq.Page(page), asynq.PageSize(perPage))
	if err != nil && !errors.Is(err, asynq.ErrQueueNotFound) {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	items := make([]archivedItem, 0, len(tasks))
	for _, t := range tasks {
		if kind != "" && t.Type != kind {
			continue
		}
		item := archivedItem{
			ID:       t.ID,
			Kind:     t.Type,
			Payload:  string(t.Payload),
			Attempts: t.Retried + 1,
			LastErr:  t.LastErr,
		}
		if !t.LastFailedAt.IsZero() {
			failedAt := t.LastFailedAt
			item.FailedAt = &failedAt
		}
		items = append(items, item)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"page":  page,
		"limit": perPage,
	})
}

// RunArchived moves an archived task back to pending.
func (h *AdminHandler) RunArchived(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue inspector unavailable", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "task id required", nil)
		return
	}
	if err := h.Inspector.RunTask(h.queue(), id); err != nil {
		QueueReplayedTotal.WithLabelValues(h.queue(), "error").Inc()
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "task not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	QueueReplayedTotal.WithLabelValues(h.queue(), "ok").Inc()
	h.Logger.Info().Str("task_id", id).Msg("archived_task_replayed")
	common.JSON(w, http.StatusOK, map[string]any{"replayed": id})
}

// Stats returns the per-state task counts of the queue.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Inspector == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "queue inspector unavailable", nil)
		return
	}
	info, err := h.Inspector.GetQueueInfo(h.queue())
	if errors.Is(err, asynq.ErrQueueNotFound) {
		info = &asynq.QueueInfo{Queue: h.queue()}
	} else if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	counts := map[string]int{
		"pending":   info.Pending,
		"active":    info.Active,
		"scheduled": info.Scheduled,
		"retry":     info.Retry,
		"archived":  info.Archived,
		"completed": info.Completed,
	}
	for state, n := range counts {
		QueueDepth.WithLabelValues(h.queue(), state).Set(float64(n))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"queue":       h.queue(),
		"size":        info.Size,
		"states":      counts,
		"processed":   info.Processed,
		"failed":      info.Failed,
		"paused":      info.Paused,
		"latency_ms":  info.Latency.Milliseconds(),
		"observed_at": time.Now().UTC(),
	})
}

func (h *AdminHandler) queue() string {
	if h.Queue == "" {
		return DefaultQueue
	}
	return h.Queue
}

func (h *AdminHandler) pageSize() int {
	if h.PageSize <= 0 {
		return 50
	}
	return h.PageSize
}

type archivedItem struct {
	ID       string     `json:"id"`
	Kind     string     `json:"kind"`
	Payload  string     `json:"payload"`
	Attempts int        `json:"attempts"`
	LastErr  string     `json:"lastError,omitempty"`
	FailedAt *time.Time `json:"failedAt,omitempty"`
}
