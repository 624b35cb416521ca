package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/common"
	"github.com/dmitrijs2005/ascgate/internal/metrics"
	"github.com/golang-jwt/jwt/v5"
)

// TokenSource hands out a token that is valid for the given credentials.
type TokenSource interface {
	Issue(ctx context.Context, creds Credentials) (AccessToken, error)
}

// Issuer signs a new token on every call. It keeps no state besides its
// signer and clock and is safe for concurrent use.
type Issuer struct {
	signer Signer
	now    func() time.Time
}

func NewIssuer(signer Signer) *Issuer {
	return &Issuer{signer: signer, now: time.Now}
}

// Issue builds header {alg, kid, typ} and payload {iss, iat, exp, aud},
// and signs them. exp is always iat+TokenLifetime.
func (i *Issuer) Issue(ctx context.Context, creds Credentials) (AccessToken, error) {
	if creds.KeyID == "" {
		return AccessToken{}, fmt.Errorf("%w: key id is empty", common.ErrConfiguration)
	}
	if creds.IssuerID == "" {
		return AccessToken{}, fmt.Errorf("%w: issuer id is empty", common.ErrConfiguration)
	}
	if creds.KeyRef == "" {
		return AccessToken{}, fmt.Errorf("%w: signing key reference is empty", common.ErrConfiguration)
	}

	issuedAt := time.Unix(i.now().Unix(), 0)
	expiresAt := issuedAt.Add(TokenLifetime)

	token := jwt.NewWithClaims(&signerMethod{ctx: ctx, signer: i.signer}, jwt.MapClaims{
		"iss": creds.IssuerID,
		"iat": issuedAt.Unix(),
		"exp": expiresAt.Unix(),
		"aud": common.TokenAudience,
	})
	token.Header["kid"] = creds.KeyID

	signed, err := token.SignedString(creds.KeyRef)
	if err != nil {
		return AccessToken{}, fmt.Errorf("%w: key %s: %w", common.ErrSigning, creds.KeyID, err)
	}

	metrics.TokensIssued.Inc()

	return AccessToken{Value: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// signerMethod is ES256 with the signature delegated to a Signer. The key
// handed to Sign is the credentials' KeyRef.
type signerMethod struct {
	ctx    context.Context
	signer Signer
}

func (m *signerMethod) Alg() string {
	return jwt.SigningMethodES256.Alg()
}

func (m *signerMethod) Verify(signingString string, sig []byte, key interface{}) error {
	return jwt.SigningMethodES256.Verify(signingString, sig, key)
}

func (m *signerMethod) Sign(signingString string, key interface{}) ([]byte, error) {
	keyRef, ok := key.(string)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}
	if m.signer == nil {
		return nil, fmt.Errorf("no signer configured")
	}

	sig, err := m.signer.Sign(m.ctx, keyRef, []byte(signingString))
	if err != nil {
		return nil, err
	}
	if len(sig) != 64 {
		return nil, fmt.Errorf("signer returned %d bytes, want 64", len(sig))
	}
	return sig, nil
}
