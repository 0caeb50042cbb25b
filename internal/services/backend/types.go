package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ClassifyRequest is the body of POST /api/classify.
type ClassifyRequest struct {
	Filename       string  `json:"filename"`
	Extension      string  `json:"extension"`
	SizeBytes      *int64  `json:"size_bytes,omitempty"`
	ContentPreview *string `json:"content_preview,omitempty"`
}

// ClassifyResponse is the service verdict for one file.
type ClassifyResponse struct {
	Category             string  `json:"category"`
	Destination          string  `json:"destination"`
	Confidence           float64 `json:"confidence"`
	RuleID               *string `json:"rule_id"`
	RuleName             *string `json:"rule_name"`
	ClassificationMethod string  `json:"classification_method"`
	ConflictStrategy     *string `json:"conflict_strategy"`
}

// ActionLogRequest is the body of POST /api/actions/log.
type ActionLogRequest struct {
	Filename   string  `json:"filename"`
	SourcePath string  `json:"source_path"`
	DestPath   string  `json:"dest_path"`
	CategoryID *string `json:"category_id"`
	RuleID     *string `json:"rule_id"`
	Confidence float64 `json:"confidence"`
}

// Rule is a user rule as served by GET /api/rules. ConditionValue is kept raw
// and decoded by the classifier according to ConditionType.
type Rule struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ConditionType  string          `json:"condition_type"`
	ConditionValue json.RawMessage `json:"condition_value"`
	Destination    string          `json:"destination"`
	Priority       int             `json:"priority"`
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Endpoint string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s returned %d", e.Endpoint, e.Code)
	}
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Code, e.Body)
}

// IsRejected reports whether err is a 4xx answer that resending the same body
// cannot fix. Auth, quota, timeout and rate-limit responses are excluded.
func IsRejected(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.Code {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden,
		http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return statusErr.Code >= 400 && statusErr.Code < 500
}

// decodeRules accepts either a bare array or an object with a "rules" field.
func decodeRules(data []byte) ([]Rule, error) {
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err == nil {
		return rules, nil
	}
	var envelope struct {
		Rules []Rule `json:"rules"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return envelope.Rules, nil
}
