// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")

	// Note file and section validation.
	ErrDocumentFormat     = errors.New("no section in file found")
	ErrDuplicateSection   = errors.New("section already exists")
	ErrLastSection        = errors.New("cannot delete the last section")
	ErrInvalidSectionName = errors.New("section name must contain letters only")

	ErrInvalidQuery = errors.New("invalid search")
)
