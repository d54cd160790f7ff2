package service

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the services. Handlers map these onto HTTP
// statuses; per-item crawl errors never reach this level, they are
// absorbed into skip counts inside the crawlers.
var (
	// ErrNotFound: unknown request / example / config id.
	ErrNotFound = errors.New("not found")

	// ErrValidation: malformed submitted data.
	ErrValidation = errors.New("validation failed")

	// ErrStageConflict: a stage operation was called against a request
	// whose current stage is outside the operation's allowed set. This is
	// also what a losing concurrent duplicate call observes, since every
	// stage advance is a compare-and-swap on the status column.
	ErrStageConflict = errors.New("stage conflict")
)

// ProviderError wraps a generation-provider failure. The request's stage
// is left untouched when one surfaces, so repeating the same call is the
// recovery path.
type ProviderError struct {
	Op  string // analyze, generate_spec, generate_json, test_optimize
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
