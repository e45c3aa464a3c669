package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrReference = errors.New("referenced row does not exist")
	// ErrOverlap is reported when the prevent_hall_overlap guard rejects a write.
	ErrOverlap = errors.New("hall overlap")
	// ErrTxAborted is a serialization failure or deadlock. Nothing was written.
	ErrTxAborted = errors.New("transaction aborted by a concurrent write")
)
