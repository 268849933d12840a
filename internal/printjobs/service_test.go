package printjobs

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/audit"
	"github.com/meridian-erp/meridian-erp/internal/authz"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memStore struct {
	jobs   map[int64]PrintJob
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{jobs: map[int64]PrintJob{}, nextID: 1}
}

func (m *memStore) List(_ context.Context, _ ListFilter) ([]PrintJob, int, time.Time, error) {
	var out []PrintJob
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, len(out), time.Time{}, nil
}

func (m *memStore) Get(_ context.Context, id int64) (PrintJob, error) {
	j, ok := m.jobs[id]
	if !ok {
		return PrintJob{}, shared.ErrNotFound
	}
	return j, nil
}

func (m *memStore) Create(_ context.Context, j PrintJob) (PrintJob, error) {
	j.ID = m.nextID
	m.nextID++
	j.CreatedAt = time.Now()
	j.UpdatedAt = j.CreatedAt
	m.jobs[j.ID] = j
	return j, nil
}

func (m *memStore) Update(_ context.Context, j PrintJob) (PrintJob, error) {
	if _, ok := m.jobs[j.ID]; !ok {
		return PrintJob{}, shared.ErrNotFound
	}
	j.UpdatedAt = time.Now()
	m.jobs[j.ID] = j
	return j, nil
}

type captureWriter struct {
	entries []audit.Entry
}

func (c *captureWriter) Insert(_ context.Context, entry audit.Entry) error {
	c.entries = append(c.entries, entry)
	return nil
}

func newTestService() (*Service, *captureWriter) {
	writer := &captureWriter{}
	return NewService(newMemStore(), audit.NewRecorder(writer, slog.Default())), writer
}

func claims() *shared.Claims {
	return &shared.Claims{UserID: 7}
}

func TestJobLifecycle(t *testing.T) {
	svc, writer := newTestService()

	job, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2})
	require.NoError(t, err)
	require.Equal(t, StatusQueued, job.Status)
	require.Nil(t, job.AssignedUserID)

	job, err = svc.Start(context.Background(), claims(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusStarted, job.Status)
	require.NotNil(t, job.AssignedUserID)
	require.Equal(t, int64(7), *job.AssignedUserID, "starting assigns the actor")

	job, err = svc.Complete(context.Background(), claims(), job.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, job.Status)

	require.Len(t, writer.entries, 3)
	require.Equal(t, "PRINTJOB.START", writer.entries[1].Action)
	changes := writer.entries[1].Meta["changes"].(map[string]audit.Change)
	require.Equal(t, audit.Change{Before: StatusQueued, After: StatusStarted}, changes["status"])
	require.Equal(t, audit.Change{Before: nil, After: int64(7)}, changes["assigned_user_id"])
}

func TestCompleteRequiresStarted(t *testing.T) {
	svc, _ := newTestService()
	job, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2})
	require.NoError(t, err)

	var invalid *shared.InvalidTransitionError
	_, err = svc.Complete(context.Background(), claims(), job.ID)
	require.ErrorAs(t, err, &invalid)

	_, err = svc.Start(context.Background(), claims(), job.ID)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), claims(), job.ID)
	require.ErrorAs(t, err, &invalid, "starting twice is rejected")
}

func TestBranchScopeEnforced(t *testing.T) {
	svc, _ := newTestService()
	scoped := &shared.Claims{UserID: 7, BranchIDs: []int64{3}}

	_, err := svc.Create(context.Background(), scoped, CreateInput{BranchID: 2})
	require.ErrorIs(t, err, shared.ErrBranchDenied)

	job, err := svc.Create(context.Background(), claims(), CreateInput{BranchID: 2})
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), scoped, job.ID)
	require.ErrorIs(t, err, shared.ErrBranchDenied)
}

func TestCreateGuardedByStartPermission(t *testing.T) {
	svc, _ := newTestService()
	handler := NewHandler(svc, authz.Guard{Logger: slog.Default()})

	newServer := func(perms ...string) *httptest.Server {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				c := &shared.Claims{UserID: 7, Perms: perms}
				next.ServeHTTP(w, req.WithContext(shared.ContextWithClaims(req.Context(), c)))
			})
		})
		handler.Routes(r)
		srv := httptest.NewServer(r)
		t.Cleanup(srv.Close)
		return srv
	}

	body := `{"branch_id": 2}`

	srv := newServer("PRINT.START")
	resp, err := http.Post(srv.URL+"/print-jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	srv = newServer("PRINT.READ")
	resp, err = http.Post(srv.URL+"/print-jobs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
