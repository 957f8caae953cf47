package imt

import "errors"

var (
	// ErrNotFound is returned when a low-element lookup runs against a tree
	// with no occupied leaves. The sentinel exists from genesis, so seeing
	// this error means the tree was constructed outside New.
	ErrNotFound = errors.New("imt: tree has no occupied leaves")

	// ErrAlreadyPresent is returned when the inserted value is already a
	// member, detected through the low-element ordering.
	ErrAlreadyPresent = errors.New("imt: value already present")

	// ErrCapacityExceeded is returned once all 2^height leaves are occupied.
	// This is operationally fatal: it requires deploying a taller tree.
	ErrCapacityExceeded = errors.New("imt: leaf capacity exceeded")

	// ErrDuplicateInBatch is returned when two batch values are equal.
	ErrDuplicateInBatch = errors.New("imt: duplicate value in batch")

	// ErrOrderingViolation is returned by the non-membership check when the
	// candidate value does not lie strictly inside the low element's range.
	ErrOrderingViolation = errors.New("imt: low element ordering violated")

	// ErrMerkleProofMismatch is returned when a merkle path does not
	// recompute to the claimed root.
	ErrMerkleProofMismatch = errors.New("imt: merkle path does not recompute to root")

	// ErrMalformedInput covers wrong path lengths, nil values, values
	// outside the field and the reserved zero value.
	ErrMalformedInput = errors.New("imt: malformed input")
)
