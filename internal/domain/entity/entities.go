package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FormulaDefinition is a stored formula together with its default context
type FormulaDefinition struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Expression  string            `json:"expression"` // e.g. "IF(EQ(qty; 0); 0; SUM(base; fee))"
	Variables   map[string]string `json:"variables"`  // raw context text, stored as JSONB
	Description string            `json:"description,omitempty"`
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// VariablesJSON returns variables as JSON bytes
func (f *FormulaDefinition) VariablesJSON() ([]byte, error) {
	if f.Variables == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f.Variables)
}

// MergedVariables returns the stored variables with overrides applied on top
func (f *FormulaDefinition) MergedVariables(overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(f.Variables)+len(overrides))
	for k, v := range f.Variables {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

// Evaluation records the outcome of solving a formula once
type Evaluation struct {
	ID           uuid.UUID         `json:"id"`
	FormulaID    uuid.UUID         `json:"formula_id"`
	Variables    map[string]string `json:"variables"`
	Result       string            `json:"result,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	ErrorKind    string            `json:"error_kind,omitempty"` // "parse", "operation" or "limit"
	Succeeded    bool              `json:"succeeded"`
	ContextHash  string            `json:"context_hash"`
	DurationUS   int64             `json:"duration_us"`
	EvaluatedAt  time.Time         `json:"evaluated_at"`
}

// VariablesJSON returns variables as JSON bytes
func (e *Evaluation) VariablesJSON() ([]byte, error) {
	if e.Variables == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Variables)
}

// ContextHash fingerprints an expression and the context it was solved
// with. encoding/json sorts map keys, so equal contexts hash equally.
func ContextHash(expression string, variables map[string]string) string {
	h := sha256.New()
	h.Write([]byte(expression))
	h.Write([]byte{0})
	if variables == nil {
		variables = map[string]string{}
	}
	data, _ := json.Marshal(variables)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// FormulaStats is the read model behind the stats endpoint
type FormulaStats struct {
	Formulas          int64 `json:"formulas"`
	FailedEvaluations int64 `json:"failed_evaluations"`
}

// JobStatus represents the status of a batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether a job in this status will not run again
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// JobType represents the type of batch job
type JobType string

const (
	JobTypeEvaluateAll     JobType = "EVALUATE_ALL"
	JobTypeEvaluateFormula JobType = "EVALUATE_FORMULA"
)

// BatchJob represents a background job for large operations
type BatchJob struct {
	ID               uuid.UUID              `json:"id"`
	JobType          JobType                `json:"job_type"`
	Status           JobStatus              `json:"status"`
	TotalRecords     int64                  `json:"total_records"`
	ProcessedRecords int64                  `json:"processed_records"`
	FailedRecords    int64                  `json:"failed_records"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
	ErrorMessage     string                 `json:"error_message,omitempty"`
	StartedAt        *time.Time             `json:"started_at,omitempty"`
	FinishedAt       *time.Time             `json:"finished_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
}

// NewBatchJob creates a pending job of the given type
func NewBatchJob(jobType JobType, metadata map[string]interface{}) *BatchJob {
	return &BatchJob{
		ID:        uuid.New(),
		JobType:   jobType,
		Status:    JobStatusPending,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}

// Progress returns the progress percentage
func (b *BatchJob) Progress() float64 {
	if b.TotalRecords == 0 {
		return 0
	}
	return float64(b.ProcessedRecords) / float64(b.TotalRecords) * 100
}

// Overrides extracts the context overrides stored in the job metadata
func (b *BatchJob) Overrides() map[string]string {
	switch raw := b.Metadata["context"].(type) {
	case map[string]string:
		return raw
	case map[string]interface{}:
		overrides := make(map[string]string, len(raw))
		for k, v := range raw {
			if s, ok := v.(string); ok {
				overrides[k] = s
			}
		}
		return overrides
	}
	return nil
}

// FormulaID extracts the target formula of an EVALUATE_FORMULA job
func (b *BatchJob) FormulaID() (uuid.UUID, bool) {
	switch v := b.Metadata["formula_id"].(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		return id, err == nil
	}
	return uuid.Nil, false
}
