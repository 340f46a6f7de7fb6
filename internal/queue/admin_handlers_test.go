package queue_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-invoice/internal/queue"
)

type fakeInspector struct {
	archived []*asynq.TaskInfo
	ran      []string
	runErr   error
	info     *asynq.QueueInfo
}

func (f *fakeInspector) ListArchivedTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return f.archived, nil
}

func (f *fakeInspector) RunTask(_ string, id string) error {
	if f.runErr != nil {
		return f.runErr
	}
	f.ran = append(f.ran, id)
	return nil
}

func (f *fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	if f.info == nil {
		return nil, asynq.ErrQueueNotFound
	}
	return f.info, nil
}

func TestAdminListArchivedFiltersByKind(t *testing.T) {
	failedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	insp := &fakeInspector{archived: []*asynq.TaskInfo{
		{ID: "a", Type: "webhook:deliver", Payload: []byte(`{}`), Retried: 2, LastErr: "502", LastFailedAt: failedAt},
		{ID: "b", Type: "invoice:render", Payload: []byte(`{}`)},
	}}
	h := &queue.AdminHandler{Inspector: insp}

	rec := httptest.NewRecorder()
	h.ListArchived(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs/archived?kind=webhook:deliver", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data []struct {
			ID       string `json:"id"`
			Attempts int    `json:"attempts"`
			LastErr  string `json:"lastError"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, "a", body.Data[0].ID)
	require.Equal(t, 3, body.Data[0].Attempts)
	require.Equal(t, "502", body.Data[0].LastErr)
}

func TestAdminRunArchived(t *testing.T) {
	insp := &fakeInspector{}
	h := &queue.AdminHandler{Inspector: insp}
	r := chi.NewRouter()
	r.Post("/admin/jobs/archived/{id}/run", h.RunArchived)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/jobs/archived/task-1/run", nil).WithContext(context.Background()))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"task-1"}, insp.ran)

	insp.runErr = asynq.ErrTaskNotFound
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/jobs/archived/missing/run", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminStatsMissingQueueReportsZero(t *testing.T) {
	h := &queue.AdminHandler{Inspector: &fakeInspector{}}
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/admin/jobs/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "default", body["queue"])
	require.EqualValues(t, 0, body["size"])
}

func TestAdminWithoutInspector(t *testing.T) {
	h := &queue.AdminHandler{}
	rec := httptest.NewRecorder()
	h.ListArchived(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
