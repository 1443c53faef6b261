package port

import (
	"errors"
	"fmt"
	"strings"

	"minecomply/internal/domain"
)

// Sentinel errors used across ports.
var (
	ErrAgentNotFound    = errors.New("category agent not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrAnalysisNotFound = errors.New("analysis not found")
)

// InvalidEmbeddingError reports an embedding whose dimensionality does not
// match the regulation corpus. Fatal to the query that supplied it, not to
// the run.
type InvalidEmbeddingError struct {
	Want int
	Got  int
}

func (e *InvalidEmbeddingError) Error() string {
	return fmt.Sprintf("invalid embedding: expected %d dimensions, got %d", e.Want, e.Got)
}

// MalformedClauseError reports a clause that cannot be mapped, typically
// because its text is empty. The clause is recorded as unmapped; the run
// continues.
type MalformedClauseError struct {
	ClauseID string
	Reason   string
}

func (e *MalformedClauseError) Error() string {
	return fmt.Sprintf("malformed clause %s: %s", e.ClauseID, e.Reason)
}

// InvalidWeightConfigurationError reports category weights that do not sum
// to 1.0. Raised at configuration load, never mid-run.
type InvalidWeightConfigurationError struct {
	Sum float64
}

func (e *InvalidWeightConfigurationError) Error() string {
	return fmt.Sprintf("invalid weight configuration: category weights sum to %g, want 1.0", e.Sum)
}

// IncompleteAnalysisError reports that one or more expected category agents
// did not produce a finding. A partial risk picture is unsafe to present, so
// the whole analysis fails.
type IncompleteAnalysisError struct {
	Missing []domain.Category
}

func (e *IncompleteAnalysisError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = string(c)
	}
	return fmt.Sprintf("incomplete analysis: missing findings for categories [%s]", strings.Join(names, ", "))
}

// AnalysisError wraps a pipeline failure with the state it occurred in, so a
// failed run surfaces both the failure kind and where it failed.
type AnalysisError struct {
	State domain.RunState
	Err   error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed at %s: %v", e.State, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
