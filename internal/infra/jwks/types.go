package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
)

// JSONWebKey is a single public key as specified by RFC 7517.
type JSONWebKey struct {
	KeyType   string   `json:"kty"`
	KeyID     string   `json:"kid,omitempty"`
	Use       string   `json:"use,omitempty"`
	Algorithm string   `json:"alg,omitempty"`
	N         string   `json:"n,omitempty"`
	E         string   `json:"e,omitempty"`
	Crv       string   `json:"crv,omitempty"`
	X         string   `json:"x,omitempty"`
	Y         string   `json:"y,omitempty"`
	X5c       []string `json:"x5c,omitempty"`
}

// JSONWebKeySet is the document served by a JWKS endpoint.
type JSONWebKeySet struct {
	Keys []JSONWebKey `json:"keys"`
}

// KeySet maps key identifiers to parsed public keys. It is immutable once built.
type KeySet struct {
	keys map[string]crypto.PublicKey
}

// Key returns the public key registered under kid.
func (s *KeySet) Key(kid string) (crypto.PublicKey, bool) {
	if s == nil || kid == "" {
		return nil, false
	}
	key, ok := s.keys[kid]
	return key, ok
}

func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// KeyIDs lists the identifiers in the set, in no particular order.
func (s *KeySet) KeyIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.keys))
	for kid := range s.keys {
		ids = append(ids, kid)
	}
	return ids
}

// ParseKeySet decodes a JWKS document. Keys without a kid, keys not meant for
// signatures and keys that fail to parse are skipped.
func ParseKeySet(data []byte) (*KeySet, error) {
	var doc JSONWebKeySet
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeySet, err)
	}
	if doc.Keys == nil {
		return nil, fmt.Errorf("%w: missing keys member", ErrInvalidKeySet)
	}

	keys := make(map[string]crypto.PublicKey, len(doc.Keys))
	for i := range doc.Keys {
		jwk := &doc.Keys[i]
		if jwk.KeyID == "" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}

		pub, err := jwk.PublicKey()
		if err != nil {
			continue
		}
		keys[jwk.KeyID] = pub
	}

	return &KeySet{keys: keys}, nil
}

// PublicKey converts the JWK into a key usable by the JWT verifiers.
func (k *JSONWebKey) PublicKey() (crypto.PublicKey, error) {
	switch k.KeyType {
	case "RSA":
		return k.rsaPublicKey()
	case "EC":
		return k.ecPublicKey()
	case "OKP":
		return k.ed25519PublicKey()
	default:
		return nil, fmt.Errorf("unsupported key type %q", k.KeyType)
	}
}

func (k *JSONWebKey) rsaPublicKey() (*rsa.PublicKey, error) {
	if k.N == "" || k.E == "" {
		return nil, errors.New("rsa key: missing n or e")
	}

	n, err := decodeBigInt(k.N)
	if err != nil {
		return nil, fmt.Errorf("rsa key: decode n: %w", err)
	}
	e, err := decodeBigInt(k.E)
	if err != nil {
		return nil, fmt.Errorf("rsa key: decode e: %w", err)
	}
	if !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, errors.New("rsa key: exponent out of range")
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

func (k *JSONWebKey) ecPublicKey() (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch k.Crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("ec key: unsupported curve %q", k.Crv)
	}

	x, err := decodeBigInt(k.X)
	if err != nil {
		return nil, fmt.Errorf("ec key: decode x: %w", err)
	}
	y, err := decodeBigInt(k.Y)
	if err != nil {
		return nil, fmt.Errorf("ec key: decode y: %w", err)
	}
	//nolint:staticcheck // IsOnCurve is the only check available for raw coordinates
	if !curve.IsOnCurve(x, y) {
		return nil, errors.New("ec key: point is not on curve")
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func (k *JSONWebKey) ed25519PublicKey() (ed25519.PublicKey, error) {
	if k.Crv != "Ed25519" {
		return nil, fmt.Errorf("okp key: unsupported curve %q", k.Crv)
	}
	x, err := base64.RawURLEncoding.DecodeString(k.X)
	if err != nil {
		return nil, fmt.Errorf("okp key: decode x: %w", err)
	}
	if len(x) != ed25519.PublicKeySize {
		return nil, errors.New("okp key: wrong key size")
	}
	return ed25519.PublicKey(x), nil
}

func decodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty value")
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
