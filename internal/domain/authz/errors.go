package authz

import "net/http"

// Sentinels for errors.Is checks. Returned failures carry more specific
// descriptions but compare equal by Code.
var (
	ErrMissingHeader           = &Failure{Code: CodeMissingHeader, HTTPStatus: http.StatusUnauthorized, Description: "Authorization header is expected."}
	ErrMalformedHeader         = &Failure{Code: CodeMalformedHeader, HTTPStatus: http.StatusUnauthorized, Description: "Authorization header must be bearer token."}
	ErrInvalidHeader           = &Failure{Code: CodeInvalidHeader, HTTPStatus: http.StatusUnauthorized, Description: "Unable to parse authentication token."}
	ErrKeyNotFound             = &Failure{Code: CodeKeyNotFound, HTTPStatus: http.StatusUnauthorized, Description: "Unable to find the appropriate key."}
	ErrInvalidSignature        = &Failure{Code: CodeInvalidSignature, HTTPStatus: http.StatusUnauthorized, Description: "Token signature is invalid."}
	ErrExpired                 = &Failure{Code: CodeExpired, HTTPStatus: http.StatusUnauthorized, Description: "Token expired."}
	ErrWrongAudience           = &Failure{Code: CodeWrongAudience, HTTPStatus: http.StatusUnauthorized, Description: "Incorrect claims. Please, check the audience."}
	ErrWrongIssuer             = &Failure{Code: CodeWrongIssuer, HTTPStatus: http.StatusUnauthorized, Description: "Incorrect claims. Please, check the issuer."}
	ErrInvalidClaims           = &Failure{Code: CodeInvalidClaims, HTTPStatus: http.StatusUnauthorized, Description: "Incorrect claims. Please, check the token."}
	ErrMissingPermissionsClaim = &Failure{Code: CodeMissingPermissionsClaim, HTTPStatus: http.StatusBadRequest, Description: "Permissions not included in JWT."}
	ErrInsufficientPermission  = &Failure{Code: CodeInsufficientPermission, HTTPStatus: http.StatusForbidden, Description: "Permission not found."}
	ErrKeyFetchFailed          = &Failure{Code: CodeKeyFetchFailed, HTTPStatus: http.StatusServiceUnavailable, Description: "Unable to fetch signing keys."}
)

// fail copies a sentinel, optionally overriding the description and
// attaching the cause.
func fail(base *Failure, description string, cause error) *Failure {
	f := &Failure{
		Code:        base.Code,
		HTTPStatus:  base.HTTPStatus,
		Description: base.Description,
		cause:       cause,
	}
	if description != "" {
		f.Description = description
	}
	return f
}
