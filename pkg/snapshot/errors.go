package snapshot

import "errors"

// ErrCorruptSnapshot indicates a stored snapshot that cannot be decoded.
var ErrCorruptSnapshot = errors.New("corrupt snapshot record")
