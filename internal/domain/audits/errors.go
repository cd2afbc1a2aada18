package audits

import "errors"

// ErrValidation marks a bad/missing input; the invocation short-circuits
// before any provider is called.
var ErrValidation = errors.New("invalid audit request")

// ErrNotFound is returned by repositories when an audit does not exist.
var ErrNotFound = errors.New("audit not found")
