package authz

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/astro-web3/coffee-drinks/internal/infra/jwks"
	"github.com/golang-jwt/jwt/v5"
)

const bearerScheme = "bearer"

// Config holds the operator-supplied constraints on accepted tokens.
type Config struct {
	Issuer     string
	Audience   string
	Algorithms []string
	Leeway     time.Duration

	// Now is the verification clock. Defaults to time.Now.
	Now func() time.Time
}

// Service verifies bearer tokens and checks route permissions. Every error it
// returns is a *Failure.
type Service interface {
	ExtractToken(header string) (string, error)
	Verify(ctx context.Context, token string) (DecodedToken, error)
	CheckPermission(decoded DecodedToken, permission string) error
	Authorize(ctx context.Context, header, permission string) (DecodedToken, error)
}

type service struct {
	keys   jwks.Provider
	cfg    Config
	parser *jwt.Parser
}

func NewService(keys jwks.Provider, cfg Config) Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(cfg.Algorithms),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(cfg.Now),
		// keep large integer claims exact
		jwt.WithJSONNumber(),
	)

	return &service{
		keys:   keys,
		cfg:    cfg,
		parser: parser,
	}
}

func (s *service) Authorize(ctx context.Context, header, permission string) (DecodedToken, error) {
	token, err := s.ExtractToken(header)
	if err != nil {
		return nil, err
	}

	decoded, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.CheckPermission(decoded, permission); err != nil {
		return nil, err
	}

	return decoded, nil
}

func (s *service) ExtractToken(header string) (string, error) {
	if header == "" {
		return "", fail(ErrMissingHeader, "", nil)
	}

	parts := strings.Split(header, " ")
	switch {
	case !strings.EqualFold(parts[0], bearerScheme):
		return "", fail(ErrMalformedHeader, `Authorization header must start with "Bearer".`, nil)
	case len(parts) == 1 || (len(parts) == 2 && parts[1] == ""):
		return "", fail(ErrMalformedHeader, "Token not found.", nil)
	case len(parts) > 2:
		return "", fail(ErrMalformedHeader, "Authorization header must be bearer token.", nil)
	}

	return parts[1], nil
}

func (s *service) Verify(ctx context.Context, token string) (DecodedToken, error) {
	unverified, _, err := s.parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fail(ErrInvalidHeader, "", err)
	}

	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return nil, fail(ErrInvalidHeader, "Authorization malformed.", nil)
	}

	key, err := s.keys.Key(ctx, kid)
	switch {
	case errors.Is(err, jwks.ErrKeyNotFound):
		return nil, fail(ErrKeyNotFound, "", err)
	case err != nil:
		return nil, fail(ErrKeyFetchFailed, "", err)
	}

	claims := jwt.MapClaims{}
	_, err = s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return key, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if err := s.checkAudience(claims); err != nil {
		return nil, err
	}
	if err := s.checkIssuer(claims); err != nil {
		return nil, err
	}

	return DecodedToken(claims), nil
}

func (s *service) CheckPermission(decoded DecodedToken, permission string) error {
	raw, ok := decoded[permissionsClaim]
	if !ok {
		return fail(ErrMissingPermissionsClaim, "", nil)
	}

	perms, ok := parsePermissions(raw)
	if !ok {
		return fail(ErrMissingPermissionsClaim, "Permissions claim must be a list of strings.", nil)
	}

	for _, p := range perms {
		if p == permission {
			return nil
		}
	}
	return fail(ErrInsufficientPermission, "", nil)
}

// checkAudience treats a missing aud claim like a non-matching one.
func (s *service) checkAudience(claims jwt.MapClaims) error {
	aud, err := claims.GetAudience()
	if err != nil {
		return fail(ErrWrongAudience, "", err)
	}
	for _, a := range aud {
		if a == s.cfg.Audience {
			return nil
		}
	}
	return fail(ErrWrongAudience, "", nil)
}

func (s *service) checkIssuer(claims jwt.MapClaims) error {
	iss, err := claims.GetIssuer()
	if err != nil {
		return fail(ErrWrongIssuer, "", err)
	}
	if iss != s.cfg.Issuer {
		return fail(ErrWrongIssuer, "", nil)
	}
	return nil
}

// classifyParseError maps golang-jwt errors onto failure codes. The parser
// checks the algorithm and signature before any claim, and reports claim
// problems joined together, so expiry is tested first among claim errors.
func classifyParseError(err error) *Failure {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fail(ErrInvalidHeader, "", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fail(ErrInvalidSignature, "", err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fail(ErrExpired, "", err)
	default:
		return fail(ErrInvalidClaims, "", err)
	}
}
