package authz

import (
	"errors"
	"fmt"
)

// Code classifies an authorization failure.
type Code string

const (
	CodeMissingHeader           Code = "missing_header"
	CodeMalformedHeader         Code = "malformed_header"
	CodeInvalidHeader           Code = "invalid_header"
	CodeKeyNotFound             Code = "key_not_found"
	CodeInvalidSignature        Code = "invalid_signature"
	CodeExpired                 Code = "expired"
	CodeWrongAudience           Code = "wrong_audience"
	CodeWrongIssuer             Code = "wrong_issuer"
	CodeInvalidClaims           Code = "invalid_claims"
	CodeMissingPermissionsClaim Code = "missing_permissions_claim"
	CodeInsufficientPermission  Code = "insufficient_permission"
	CodeKeyFetchFailed          Code = "key_fetch_failed"
)

// Failure is the single error type returned by the authorizer. The route layer
// turns it into an HTTP response using HTTPStatus and Description.
type Failure struct {
	Code        Code
	HTTPStatus  int
	Description string

	cause error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Description)
}

// Unwrap exposes the underlying parser or fetch error for logging.
func (f *Failure) Unwrap() error {
	return f.cause
}

// Is matches any *Failure carrying the same Code, so sentinel-style checks
// like errors.Is(err, authz.ErrExpired) work.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	return ok && t.Code == f.Code
}

// AsFailure extracts a *Failure from err.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// DecodedToken holds every claim of a verified token.
type DecodedToken map[string]any

const permissionsClaim = "permissions"

// Subject returns the sub claim, or "" when absent.
func (t DecodedToken) Subject() string {
	sub, _ := t["sub"].(string)
	return sub
}

// Permissions returns the permissions claim, or nil when it is absent or not
// a list of strings.
func (t DecodedToken) Permissions() []string {
	perms, _ := parsePermissions(t[permissionsClaim])
	return perms
}

// HasPermission reports whether the permissions claim contains permission.
func (t DecodedToken) HasPermission(permission string) bool {
	for _, p := range t.Permissions() {
		if p == permission {
			return true
		}
	}
	return false
}

func parsePermissions(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		perms := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			perms = append(perms, s)
		}
		return perms, true
	default:
		return nil, false
	}
}
