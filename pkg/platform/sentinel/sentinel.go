package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// so services can translate them into ledger failure kinds:
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: record already exists under the same key
//   - ErrUnavailable: a backing service did not answer a health probe
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
