package generation

import "fmt"

// Stage names a step of a generation request
type Stage string

// Generation stages, in execution order
const (
	StageStructureLookup Stage = "structure lookup"
	StageResolution      Stage = "artifact resolution"
	StageComposition     Stage = "prompt composition"
	StageGeneration      Stage = "generation call"
	StagePersistence     Stage = "persistence"
)

// StageError is the single request-level failure of a generation request
type StageError struct {
	Stage        Stage
	DocumentType string
	Err          error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for document type %q: %v", e.Stage, e.DocumentType, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
