package model

import (
	"time"

	"github.com/google/uuid"
)

// Document is one ingested file. LabID stays nil until lab resolution
// completes; ProcessedAt stays nil until the full pipeline has run.
type Document struct {
	Base
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	LabID       *uuid.UUID `db:"lab_id" json:"lab_id,omitempty"`
	FilePath    string     `db:"file_path" json:"file_path"`
	ContentHash string     `db:"content_hash" json:"content_hash"`
	UploadedAt  time.Time  `db:"uploaded_at" json:"uploaded_at"`
	ProcessedAt *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	TokenUsage  []byte     `db:"token_usage" json:"-"`
	Cost        *float64   `db:"cost" json:"cost,omitempty"`
}

func (d *Document) Processed() bool {
	return d.ProcessedAt != nil
}

// ModelUsage is the per-collaborator-model token accounting recorded on a
// document when it is marked processed.
type ModelUsage struct {
	InputTokens  int64 `json:"input"`
	OutputTokens int64 `json:"output"`
}

// UsageReport maps collaborator model name to its accumulated usage.
type UsageReport map[string]*ModelUsage

func (r UsageReport) Add(model string, input, output int64) {
	u, ok := r[model]
	if !ok {
		u = &ModelUsage{}
		r[model] = u
	}
	u.InputTokens += input
	u.OutputTokens += output
}
