package model

import (
	"errors"
	"fmt"
)

// Code is a caller-visible numeric reason attached to document-level
// failures. Codes are stable across releases; clients key off them.
type Code int

const (
	CodeInvalidRequest      Code = 50002
	CodeUnsupportedFileType Code = 50007
	CodeEnrollmentNotImage  Code = 50008
	CodeSourceForbidden     Code = 50014
	CodeAmbiguousSource     Code = 50015
	CodeDownloadFailed      Code = 50016
	CodeNoStampMatch        Code = 50017
)

// DomainError is a coded, document-fatal failure. Collaborator and per-page
// failures are never DomainErrors; they degrade inside the pipeline.
type DomainError struct {
	Code Code
	Msg  string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

// Is matches any DomainError with the same code, so sentinels survive
// eris wrapping.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrInvalidRequest      = &DomainError{CodeInvalidRequest, "invalid request"}
	ErrUnsupportedFileType = &DomainError{CodeUnsupportedFileType, "unsupported file type, expected an image or PDF"}
	ErrEnrollmentNotImage  = &DomainError{CodeEnrollmentNotImage, "stamp enrollment requires a single image"}
	ErrSourceForbidden     = &DomainError{CodeSourceForbidden, "document source URL refused the request"}
	ErrAmbiguousSource     = &DomainError{CodeAmbiguousSource, "provide exactly one of file or url"}
	ErrDownloadFailed      = &DomainError{CodeDownloadFailed, "unable to retrieve document"}
	ErrNoStampMatch        = &DomainError{CodeNoStampMatch, "no stamp match found"}
)

// CodeOf extracts the domain code from err, unwrapping as needed.
// ok is false when err carries no code.
func CodeOf(err error) (Code, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return 0, false
}
