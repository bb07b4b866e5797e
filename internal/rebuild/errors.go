package rebuild

import "errors"

// Error kinds. Every error returned by Engine wraps exactly one of these, plus
// the underlying cause when there is one; test with errors.Is. A cancelled
// context is the exception: that error wraps ctx.Err() and none of these.
var (
	// ErrConfiguration reports an unusable request or option set:
	// empty index or table name, missing transform, non-positive chunk length.
	ErrConfiguration = errors.New("rebuild: invalid configuration")
	// ErrPrecondition reports that the target index is absent from the catalog.
	ErrPrecondition = errors.New("rebuild: precondition failed")
	// ErrUpstreamQuery wraps failures of the source or search daemon connection.
	ErrUpstreamQuery = errors.New("rebuild: upstream query failed")
	// ErrTransform wraps failures of the caller-supplied transform.
	ErrTransform = errors.New("rebuild: transform failed")
)
