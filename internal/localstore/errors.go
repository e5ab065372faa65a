package localstore

import "errors"

var (
	ErrNotFound = errors.New("storage key not found")
	ErrClosed   = errors.New("storage closed")
)
