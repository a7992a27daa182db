package jwks

import "errors"

var (
	// ErrKeyNotFound means the key set holds no key with the requested kid.
	ErrKeyNotFound = errors.New("jwks: signing key not found")
	// ErrFetchFailed covers network errors, timeouts, non-2xx responses and
	// unreadable key set documents.
	ErrFetchFailed = errors.New("jwks: key set fetch failed")
	// ErrInvalidKeySet is wrapped into ErrFetchFailed when a document cannot be parsed.
	ErrInvalidKeySet = errors.New("jwks: invalid key set document")
)
