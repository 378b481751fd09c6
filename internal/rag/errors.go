package rag

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a document id has no registry entry.
	ErrNotFound = errors.New("document not found")

	// ErrValidation marks caller input rejected before reaching the pipeline.
	ErrValidation = errors.New("invalid input")

	// ErrIngestion matches every *IngestionError.
	ErrIngestion = errors.New("ingestion failed")
)

// Ingestion stages reported in IngestionError.Stage.
const (
	StageStore   = "store"
	StageExtract = "extract"
	StageIndex   = "index"
)

// IngestionError reports which ingestion stage failed.
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrIngestion) match any stage.
func (e *IngestionError) Is(target error) bool {
	return target == ErrIngestion
}
