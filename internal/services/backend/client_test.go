package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"filesorter/internal/config"
	"filesorter/internal/services"
	"filesorter/internal/services/backend"
)

func TestClassifySendsBearerAndDecodes(t *testing.T) {
	var got backend.ClassifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/classify" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected request id header")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"category":"Invoices","destination":"Documents/Invoices","confidence":0.93,"rule_id":"r1","rule_name":"Invoices","classification_method":"rule","conflict_strategy":"rename"}`))
	}))
	defer srv.Close()

	size := int64(42)
	client := backend.New(srv.URL+"/", "tok")
	resp, err := client.Classify(context.Background(), backend.ClassifyRequest{Filename: "invoice.pdf", Extension: ".pdf", SizeBytes: &size})
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if got.Filename != "invoice.pdf" || got.SizeBytes == nil || *got.SizeBytes != 42 {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if got.ContentPreview != nil {
		t.Fatal("expected preview to be omitted")
	}
	if resp.Destination != "Documents/Invoices" || resp.Confidence != 0.93 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ConflictStrategy == nil || *resp.ConflictStrategy != "rename" {
		t.Fatalf("unexpected conflict strategy: %v", resp.ConflictStrategy)
	}
}

func TestClassifyPaymentRequiredIsQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upgrade", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	_, err := backend.New(srv.URL, "tok").Classify(context.Background(), backend.ClassifyRequest{Filename: "a.txt"})
	if !errors.Is(err, services.ErrQuota) {
		t.Fatalf("expected quota error, got %v", err)
	}
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusPaymentRequired {
		t.Fatalf("expected status error 402, got %v", err)
	}
}

func TestClassifyServerErrorIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := backend.New(srv.URL, "tok").Classify(context.Background(), backend.ClassifyRequest{Filename: "a.txt"})
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 status error, got %v", err)
	}
	if errors.Is(err, services.ErrQuota) {
		t.Fatal("502 must not be reported as quota")
	}
}

func TestLogActionPostsBody(t *testing.T) {
	var got backend.ActionLogRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/actions/log" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	category := "Documents"
	err := backend.New(srv.URL, "tok").LogAction(context.Background(), backend.ActionLogRequest{
		Filename:   "invoice.pdf",
		SourcePath: "/w/invoice.pdf",
		DestPath:   "/w/Documents/invoice.pdf",
		CategoryID: &category,
		Confidence: 0.8,
	})
	if err != nil {
		t.Fatalf("LogAction returned error: %v", err)
	}
	if got.DestPath != "/w/Documents/invoice.pdf" || got.CategoryID == nil || *got.CategoryID != "Documents" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestFetchRulesAcceptsArrayAndEnvelope(t *testing.T) {
	bodies := map[string]string{
		"array":    `[{"id":"r1","name":"Invoices","condition_type":"keyword","condition_value":{"keywords":["invoice"]},"destination":"Invoices","priority":10}]`,
		"envelope": `{"rules":[{"id":"r1","name":"Invoices","condition_type":"keyword","condition_value":{"keywords":["invoice"]},"destination":"Invoices","priority":10}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			rules, err := backend.New(srv.URL, "tok").FetchRules(context.Background())
			if err != nil {
				t.Fatalf("FetchRules returned error: %v", err)
			}
			if len(rules) != 1 || rules[0].ID != "r1" || rules[0].Priority != 10 {
				t.Fatalf("unexpected rules: %+v", rules)
			}
			if len(rules[0].ConditionValue) == 0 {
				t.Fatal("expected raw condition value")
			}
		})
	}
}

func TestUnauthorizedIsMarked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := backend.New(srv.URL, "bad").FetchRules(context.Background())
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized marker, got %v", err)
	}
}

func TestNewFromConfigRequiresToken(t *testing.T) {
	cfg := config.Default()
	cfg.Service.AccessToken = ""
	if backend.NewFromConfig(&cfg) != nil {
		t.Fatal("expected nil client without token")
	}
	cfg.Service.AccessToken = "tok"
	if c := backend.NewFromConfig(&cfg); c == nil || c.BaseURL() != "http://localhost:8085" {
		t.Fatalf("unexpected client: %+v", c)
	}
	cfg.Classifier.Mode = config.ModeLocal
	if backend.NewFromConfig(&cfg) != nil {
		t.Fatal("expected nil client in local mode")
	}
}

func TestIsRejectedOnlyForPermanentClientErrors(t *testing.T) {
	cases := map[int]bool{
		http.StatusBadRequest:          true,
		http.StatusNotFound:            true,
		http.StatusUnprocessableEntity: true,
		http.StatusUnauthorized:        false,
		http.StatusPaymentRequired:     false,
		http.StatusTooManyRequests:     false,
		http.StatusBadGateway:          false,
	}
	for code, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))
		err := backend.New(srv.URL, "tok").LogAction(context.Background(), backend.ActionLogRequest{Filename: "a.txt"})
		srv.Close()
		if got := backend.IsRejected(err); got != want {
			t.Fatalf("status %d: IsRejected=%v want %v (err=%v)", code, got, want, err)
		}
	}
	if backend.IsRejected(errors.New("connection refused")) {
		t.Fatal("transport errors must not be rejected")
	}
}
