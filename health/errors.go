package health

import "errors"

// ErrUnknownBackend indicates the manager has no such backend.
var ErrUnknownBackend = errors.New("health: unknown backend")
