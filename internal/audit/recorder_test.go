package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"filesorter/internal/audit"
	"filesorter/internal/logging"
	"filesorter/internal/services"
	"filesorter/internal/services/backend"
	"filesorter/internal/testsupport"
)

type fakeRemote struct {
	err   error
	calls []backend.ActionLogRequest
}

func (f *fakeRemote) LogAction(_ context.Context, req backend.ActionLogRequest) error {
	f.calls = append(f.calls, req)
	return f.err
}

func record(id string) audit.Record {
	return audit.Record{
		ID:         id,
		Filename:   "invoice.pdf",
		SourcePath: "/w/invoice.pdf",
		DestPath:   "/w/Documents/invoice.pdf",
		Category:   "Documents",
		RuleID:     "r1",
		Confidence: 0.8,
		Method:     "local-extension",
		Timestamp:  time.Now().UTC(),
	}
}

func TestRecorderWritesLocalAndRemote(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	remote := &fakeRemote{}
	rec := audit.NewRecorder(st, remote, logging.NewNop())

	if err := rec.LogAction(context.Background(), record("r-1")); err != nil {
		t.Fatalf("LogAction returned error: %v", err)
	}
	if len(remote.calls) != 1 {
		t.Fatalf("expected one remote call, got %d", len(remote.calls))
	}
	call := remote.calls[0]
	if call.CategoryID != nil || call.RuleID == nil || *call.RuleID != "r1" {
		t.Fatalf("unexpected wire body: %+v", call)
	}
	recent, err := st.RecentActions(context.Background(), 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected local history entry, got %v err=%v", recent, err)
	}
}

func TestRecorderQueuesOnRemoteFailure(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	remote := &fakeRemote{err: errors.New("connection refused")}
	rec := audit.NewRecorder(st, remote, logging.NewNop())

	err := rec.LogAction(context.Background(), record("r-2"))
	var logErr *audit.LogError
	if !errors.As(err, &logErr) {
		t.Fatalf("expected LogError, got %v", err)
	}
	if !logErr.Queued || !errors.Is(err, services.ErrAudit) {
		t.Fatalf("expected queued audit error, got %+v", logErr)
	}
	count, err := st.CountPending(context.Background())
	if err != nil || count != 1 {
		t.Fatalf("expected one pending action, got %d err=%v", count, err)
	}
}

func TestRecorderOfflineOnlyWritesLocal(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	rec := audit.NewRecorder(st, nil, logging.NewNop())
	if err := rec.LogAction(context.Background(), record("r-3")); err != nil {
		t.Fatalf("LogAction returned error: %v", err)
	}
	count, _ := st.CountPending(context.Background())
	if count != 0 {
		t.Fatalf("expected nothing queued offline, got %d", count)
	}
}

func TestFlushDeliversUntilFirstFailure(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"q1", "q2", "q3"} {
		if err := st.EnqueuePending(ctx, record(id), errors.New("offline")); err != nil {
			t.Fatalf("EnqueuePending failed: %v", err)
		}
	}

	remote := &fakeRemote{}
	result, err := audit.Flush(ctx, st, remote, 2, logging.NewNop())
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if result.Delivered != 2 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	remote.err = errors.New("502")
	result, err = audit.Flush(ctx, st, remote, 10, logging.NewNop())
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if result.Delivered != 0 || result.Failed != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	pending, err := st.PendingActions(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].Attempts != 1 || pending[0].Record.ID != "q3" {
		t.Fatalf("unexpected pending: %+v err=%v", pending, err)
	}
}

func TestToWireSendsNullCategoryID(t *testing.T) {
	data, err := json.Marshal(audit.ToWire(record("w-1")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"category_id":null`) {
		t.Fatalf("expected null category_id, got %s", data)
	}
}

type scriptedRemote struct {
	errs map[string]error
	sent []string
}

func (s *scriptedRemote) LogAction(_ context.Context, req backend.ActionLogRequest) error {
	s.sent = append(s.sent, req.SourcePath)
	return s.errs[req.SourcePath]
}

func TestFlushDropsRejectedRecords(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"bad", "good"} {
		rec := record(id)
		rec.SourcePath = "/w/" + id
		if err := st.EnqueuePending(ctx, rec, errors.New("offline")); err != nil {
			t.Fatalf("EnqueuePending failed: %v", err)
		}
	}

	remote := &scriptedRemote{errs: map[string]error{
		"/w/bad": &backend.StatusError{Endpoint: "/api/actions/log", Code: 422, Body: "invalid category_id"},
	}}
	result, err := audit.Flush(ctx, st, remote, 10, logging.NewNop())
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if result.Rejected != 1 || result.Delivered != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	count, err := st.CountPending(ctx)
	if err != nil || count != 0 {
		t.Fatalf("expected empty queue, got %d err=%v", count, err)
	}
}

func TestFlushKeepsRateLimitedRecords(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if err := st.EnqueuePending(ctx, record("slow"), errors.New("offline")); err != nil {
		t.Fatalf("EnqueuePending failed: %v", err)
	}
	remote := &fakeRemote{err: &backend.StatusError{Endpoint: "/api/actions/log", Code: 429}}
	result, err := audit.Flush(ctx, st, remote, 10, logging.NewNop())
	if err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if result.Failed != 1 || result.Rejected != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
	count, _ := st.CountPending(ctx)
	if count != 1 {
		t.Fatalf("expected record kept for retry, got %d", count)
	}
}

func TestRecorderDoesNotQueueRejectedRecords(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	remote := &fakeRemote{err: &backend.StatusError{Endpoint: "/api/actions/log", Code: 400}}
	rec := audit.NewRecorder(st, remote, logging.NewNop())

	err := rec.LogAction(context.Background(), record("r-4"))
	var logErr *audit.LogError
	if !errors.As(err, &logErr) || logErr.Queued {
		t.Fatalf("expected unqueued LogError, got %v", err)
	}
	count, _ := st.CountPending(context.Background())
	if count != 0 {
		t.Fatalf("expected nothing queued, got %d", count)
	}
	recent, _ := st.RecentActions(context.Background(), 5)
	if len(recent) != 1 {
		t.Fatalf("expected local history entry, got %d", len(recent))
	}
}
