package models

import (
	"bytes"
	"encoding/json"
)

type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
)

// Acceptance is the reply to POST /api/analyze.
type Acceptance struct {
	Success    bool   `json:"success"`
	AnalysisID string `json:"analysis_id,omitempty"`
	Message    string `json:"message,omitempty"`
}

// StatusResponse is the reply to GET /api/analysis/{id}.
type StatusResponse struct {
	Status  JobStatus       `json:"status"`
	Success bool            `json:"success"`
	Result  *AnalysisResult `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
}

// AnalysisResult keeps the backend payload verbatim next to the decision
// text, so it can be dumped without losing fields or key order.
type AnalysisResult struct {
	Decision string
	Raw      json.RawMessage
}

func (r *AnalysisResult) UnmarshalJSON(data []byte) error {
	var decision any
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	switch p := payload.(type) {
	case map[string]any:
		decision = p["decision"]
	case string:
		// some backends send the decision text as the whole result
		decision = p
	}
	switch v := decision.(type) {
	case nil:
		r.Decision = ""
	case string:
		r.Decision = v
	default:
		b, _ := json.Marshal(v)
		r.Decision = string(b)
	}
	r.Raw = append(r.Raw[:0], data...)
	return nil
}

func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	return json.Marshal(map[string]string{"decision": r.Decision})
}

// Pretty renders the payload as 2-space indented JSON.
func (r AnalysisResult) Pretty() string {
	raw, err := r.MarshalJSON()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

// AnalysisJob is the client-side view of a submitted job. It only changes
// through status reads.
type AnalysisJob struct {
	ID       string
	Status   JobStatus
	Attempts int
	Result   *AnalysisResult
}
