package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RowErrorKind classifies why a single input row was not reconciled.
type RowErrorKind string

const (
	RowErrorParse         RowErrorKind = "parse"
	RowErrorUnknownStatus RowErrorKind = "unknown_status"
	RowErrorStore         RowErrorKind = "store"
)

// RowError ties a failure to its position in the input batch.
type RowError struct {
	Row  int
	Kind RowErrorKind
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// BatchReport summarises one reconciliation run over a source export.
//
// Rows == Inserted + Updated + Unchanged + Skipped + Errors + UnknownStatus
// for every batch that was not aborted.
type BatchReport struct {
	RunID         uuid.UUID `json:"run_id"         db:"id"`
	Source        Source    `json:"source"         db:"source"`
	Rows          int       `json:"rows"           db:"rows_total"`
	Inserted      int       `json:"inserted"       db:"inserted"`
	Updated       int       `json:"updated"        db:"updated"`
	Unchanged     int       `json:"unchanged"      db:"unchanged"`
	Skipped       int       `json:"skipped"        db:"skipped"`
	Errors        int       `json:"errors"         db:"errors"`
	UnknownStatus int       `json:"unknown_status" db:"unknown_status"`
	LowConfidence int       `json:"low_confidence" db:"low_confidence"`
	ErrorSamples  []string  `json:"error_samples"  db:"-"`
	Failed        bool      `json:"failed"         db:"failed"`
	FailureReason string    `json:"failure_reason,omitempty" db:"failure_reason"`
	StartedAt     time.Time `json:"started_at"     db:"started_at"`
	FinishedAt    time.Time `json:"finished_at"    db:"finished_at"`
}

// NewBatchReport starts an empty report for a run over src.
func NewBatchReport(src Source, rows int) BatchReport {
	return BatchReport{
		RunID:        uuid.New(),
		Source:       src,
		Rows:         rows,
		ErrorSamples: []string{},
		StartedAt:    time.Now().UTC(),
	}
}

// AddRowError counts err under its kind and keeps at most maxSamples messages.
func (r *BatchReport) AddRowError(err *RowError, maxSamples int) {
	if err.Kind == RowErrorUnknownStatus {
		r.UnknownStatus++
	} else {
		r.Errors++
	}
	if len(r.ErrorSamples) < maxSamples {
		r.ErrorSamples = append(r.ErrorSamples, err.Error())
	}
}

// Fail marks the whole batch as discarded. Row counters are reset because
// nothing from the batch was persisted.
func (r *BatchReport) Fail(reason error) {
	r.Failed = true
	r.FailureReason = reason.Error()
	r.Inserted, r.Updated, r.Unchanged = 0, 0, 0
}

// Accounted returns the number of rows that reached a terminal outcome.
func (r *BatchReport) Accounted() int {
	return r.Inserted + r.Updated + r.Unchanged + r.Skipped + r.Errors + r.UnknownStatus
}
