package presigned

import "errors"

var (
	// ErrPathOutsideNamespace indicates an object path that does not belong
	// to the requesting account's namespace.
	ErrPathOutsideNamespace = errors.New("object path outside account namespace")
	// ErrObjectMissing signals that no object exists at the given path.
	ErrObjectMissing = errors.New("object missing")
)
