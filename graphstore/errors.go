package graphstore

import "errors"

// ErrUnknownFile is returned by lookups against a path with no node.
// Per the UnknownFile error kind, callers treat this as an empty
// success, not a failure worth propagating to a user.
var ErrUnknownFile = errors.New("graphstore: unknown file")
