package classify_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filesorter/internal/classify"
	"filesorter/internal/logging"
	"filesorter/internal/resolve"
	"filesorter/internal/services"
	"filesorter/internal/services/backend"
)

type fakeBackend struct {
	resp  backend.ClassifyResponse
	err   error
	calls int
	last  backend.ClassifyRequest
}

func (f *fakeBackend) Classify(_ context.Context, req backend.ClassifyRequest) (backend.ClassifyResponse, error) {
	f.calls++
	f.last = req
	return f.resp, f.err
}

func strPtr(s string) *string { return &s }

func TestRemoteMapsResponse(t *testing.T) {
	fb := &fakeBackend{resp: backend.ClassifyResponse{
		Category:             "Invoices",
		Destination:          "Documents/Invoices/",
		Confidence:           1.7,
		RuleID:               strPtr("r1"),
		RuleName:             strPtr("Invoices"),
		ClassificationMethod: "rule",
		ConflictStrategy:     strPtr("rename"),
	}}
	result, err := classify.NewRemote(fb).Classify(context.Background(), classify.Request{Filename: "invoice.pdf", Extension: ".pdf"})
	require.NoError(t, err)

	assert.Equal(t, "invoice.pdf", fb.last.Filename)
	assert.Equal(t, filepath.FromSlash("Documents/Invoices"), result.Destination)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
	assert.Equal(t, "r1", result.RuleID)
	assert.Equal(t, classify.MethodRemote, result.Method)
	assert.Equal(t, resolve.StrategyRename, result.ConflictStrategy)
}

func TestRemoteMissingStrategyIsSkip(t *testing.T) {
	fb := &fakeBackend{resp: backend.ClassifyResponse{Category: "Docs", Destination: "Docs", Confidence: 0.4}}
	result, err := classify.NewRemote(fb).Classify(context.Background(), classify.Request{Filename: "a.pdf"})
	require.NoError(t, err)
	assert.Equal(t, resolve.StrategySkip, result.ConflictStrategy)
}

func TestRemoteRejectsUnsafeDestinations(t *testing.T) {
	for _, dest := range []string{"", "/etc", "../outside", "Docs/../../x", "."} {
		t.Run(dest, func(t *testing.T) {
			fb := &fakeBackend{resp: backend.ClassifyResponse{Category: "X", Destination: dest, Confidence: 0.9}}
			_, err := classify.NewRemote(fb).Classify(context.Background(), classify.Request{Filename: "a.pdf"})
			var providerErr *classify.ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.ErrorIs(t, err, services.ErrProvider)
		})
	}
}

func TestRemoteQuotaIsDistinct(t *testing.T) {
	fb := &fakeBackend{err: services.Wrap(services.ErrQuota, "backend", "/api/classify", "402", nil)}
	_, err := classify.NewRemote(fb).Classify(context.Background(), classify.Request{Filename: "a.pdf"})
	assert.ErrorIs(t, err, classify.ErrQuotaExceeded)
	var providerErr *classify.ProviderError
	assert.False(t, errors.As(err, &providerErr))
}

func TestRemoteTransportFailureIsProviderError(t *testing.T) {
	fb := &fakeBackend{err: errors.New("connection refused")}
	_, err := classify.NewRemote(fb).Classify(context.Background(), classify.Request{Filename: "a.pdf"})
	var providerErr *classify.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "remote", providerErr.Provider)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFallbackDegradesOnProviderError(t *testing.T) {
	fb := &fakeBackend{err: errors.New("timeout")}
	provider := &classify.Fallback{
		Primary:   classify.NewRemote(fb),
		Secondary: classify.NewLocal(logging.NewNop()),
		Logger:    logging.NewNop(),
	}
	result, err := provider.Classify(context.Background(), classify.Request{Filename: "invoice.pdf", Extension: ".pdf"})
	require.NoError(t, err)
	assert.Equal(t, classify.MethodLocalExtension, result.Method)
	assert.Equal(t, "Documents", result.Destination)
}

func TestFallbackDoesNotMaskQuota(t *testing.T) {
	fb := &fakeBackend{err: services.Wrap(services.ErrQuota, "backend", "", "", nil)}
	secondaryCalls := 0
	provider := &classify.Fallback{
		Primary: classify.NewRemote(fb),
		Secondary: classify.ProviderFunc(func(context.Context, classify.Request) (classify.Result, error) {
			secondaryCalls++
			return classify.Result{}, nil
		}),
	}
	_, err := provider.Classify(context.Background(), classify.Request{Filename: "a.pdf"})
	assert.ErrorIs(t, err, classify.ErrQuotaExceeded)
	assert.Zero(t, secondaryCalls)
}

func TestBuildRequestReadsPreviewForText(t *testing.T) {
	dir := t.TempDir()
	textPath := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(textPath, []byte(strings.Repeat("a", 1500)), 0o644))
	binPath := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(binPath, []byte{0xff, 0xd8, 0xff}, 0o644))

	req, err := classify.BuildRequest(textPath)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", req.Filename)
	assert.Equal(t, ".md", req.Extension)
	require.NotNil(t, req.SizeBytes)
	assert.EqualValues(t, 1500, *req.SizeBytes)
	require.NotNil(t, req.ContentPreview)
	assert.Len(t, *req.ContentPreview, classify.PreviewBytes)

	req, err = classify.BuildRequest(binPath)
	require.NoError(t, err)
	assert.Nil(t, req.ContentPreview)
}

func TestBuildRequestInvalidUTF8IsLossy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte{'o', 'k', 0xff, 0xfe}, 0o644))

	req, err := classify.BuildRequest(path)
	require.NoError(t, err)
	require.NotNil(t, req.ContentPreview)
	assert.True(t, strings.HasPrefix(*req.ContentPreview, "ok"))
	assert.Contains(t, *req.ContentPreview, "�")
}

func TestBuildRequestMissingFile(t *testing.T) {
	_, err := classify.BuildRequest(filepath.Join(t.TempDir(), "gone.pdf"))
	assert.Error(t, err)
}

func TestWireRoundTripKeepsCondition(t *testing.T) {
	rule := classify.Rule{
		ID: "r1", Name: "Invoices", Kind: classify.KindKeyword,
		Condition:   classify.Condition{Keywords: []string{"invoice"}, CaseSensitive: true},
		Destination: "Invoices", Priority: 7,
	}
	back, err := classify.FromWire(rule.Wire())
	require.NoError(t, err)
	assert.Equal(t, rule, back)

	_, errs := classify.FromWireAll([]backend.Rule{{ID: "bad", ConditionType: "keyword", ConditionValue: []byte(`"nope"`)}})
	assert.Len(t, errs, 1)
}

func TestFromWireRejectsEscapingDestination(t *testing.T) {
	_, errs := classify.FromWireAll([]backend.Rule{
		{ID: "abs", ConditionType: "keyword", ConditionValue: []byte(`{"keywords":["x"]}`), Destination: "/etc"},
		{ID: "up", ConditionType: "keyword", ConditionValue: []byte(`{"keywords":["x"]}`), Destination: "../elsewhere"},
	})
	assert.Len(t, errs, 2)
}
