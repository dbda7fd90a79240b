package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/protonrent/telegram-relay/internal/domain"
)

// Headers is the subset of request header access a scheme needs.
type Headers interface {
	Get(key string) string
}

// Scheme validates the authenticity of one inbound request. Implementations
// receive the request headers and the raw, unparsed body and return an error
// wrapping domain.ErrUnauthorized on rejection.
type Scheme interface {
	Verify(headers Headers, body []byte) error
}

const (
	bearerPrefix       = "Bearer "
	signatureHeader    = "X-Signature"
	signatureAlgHeader = "X-Signature-Alg"
	signaturePrefix    = "sha256="
	signatureAlg       = "HMAC-SHA256"
	apiKeyHeader       = "X-API-Key"
)

// BearerToken requires Authorization: Bearer <token> with a constant-time
// match against the configured token.
type BearerToken struct {
	token string
}

func NewBearerToken(token string) (*BearerToken, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("bearer token is required")
	}
	return &BearerToken{token: token}, nil
}

func (s *BearerToken) Verify(headers Headers, _ []byte) error {
	value := headers.Get("Authorization")
	if !strings.HasPrefix(value, bearerPrefix) {
		return fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}
	presented := strings.TrimPrefix(value, bearerPrefix)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.token)) != 1 {
		return fmt.Errorf("%w: invalid authentication token", domain.ErrUnauthorized)
	}
	return nil
}

// SharedSecretHeader requires X-API-Key to match the configured secret. When
// no secret is configured the scheme accepts every request; this exists only
// for the legacy route and callers are expected to log the insecure mode.
type SharedSecretHeader struct {
	secret string
}

func NewSharedSecretHeader(secret string) *SharedSecretHeader {
	return &SharedSecretHeader{secret: secret}
}

// Insecure reports whether the scheme accepts unconditionally because no
// secret was configured.
func (s *SharedSecretHeader) Insecure() bool {
	return s.secret == ""
}

func (s *SharedSecretHeader) Verify(headers Headers, _ []byte) error {
	if s.Insecure() {
		return nil
	}
	presented := headers.Get(apiKeyHeader)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(s.secret)) != 1 {
		return fmt.Errorf("%w: invalid API key", domain.ErrUnauthorized)
	}
	return nil
}

// HMACSignature requires X-Signature: sha256=<hex> and
// X-Signature-Alg: HMAC-SHA256, where <hex> is the HMAC-SHA256 digest of the
// raw request body under the shared secret.
type HMACSignature struct {
	secret []byte
}

func NewHMACSignature(secret string) (*HMACSignature, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("webhook secret is required")
	}
	return &HMACSignature{secret: []byte(secret)}, nil
}

func (s *HMACSignature) Verify(headers Headers, body []byte) error {
	alg := headers.Get(signatureAlgHeader)
	if alg == "" {
		return fmt.Errorf("%w: missing signature algorithm header", domain.ErrUnauthorized)
	}
	if alg != signatureAlg {
		return fmt.Errorf("%w: unsupported signature algorithm %q", domain.ErrUnauthorized, alg)
	}

	value := headers.Get(signatureHeader)
	if value == "" {
		return fmt.Errorf("%w: missing signature header", domain.ErrUnauthorized)
	}
	if !strings.HasPrefix(value, signaturePrefix) {
		return fmt.Errorf("%w: malformed signature header", domain.ErrUnauthorized)
	}

	presented, err := hex.DecodeString(strings.TrimPrefix(value, signaturePrefix))
	if err != nil {
		return fmt.Errorf("%w: malformed signature digest", domain.ErrUnauthorized)
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(presented, mac.Sum(nil)) {
		return fmt.Errorf("%w: signature mismatch", domain.ErrUnauthorized)
	}
	return nil
}

// ComputeSignature returns the hex HMAC-SHA256 digest of body under secret.
// Exposed for callers that sign outbound test traffic.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type allSchemes struct {
	schemes []Scheme
}

// All combines schemes with AND semantics: every scheme must accept. The
// webhook route uses it to require bearer token and HMAC signature together.
func All(schemes ...Scheme) Scheme {
	return &allSchemes{schemes: schemes}
}

func (s *allSchemes) Verify(headers Headers, body []byte) error {
	for _, scheme := range s.schemes {
		if err := scheme.Verify(headers, body); err != nil {
			return err
		}
	}
	return nil
}
