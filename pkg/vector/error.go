package vector

import "errors"

var (
	// ErrIndexUnavailable is returned when the backing vector store cannot be
	// reached. It is not recoverable by the caller and must propagate.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch is returned when an embedding does not match the
	// collection's dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidCollection is returned for an empty collection name.
	ErrInvalidCollection = errors.New("invalid collection name")
)
