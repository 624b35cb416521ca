package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"os"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// Signer produces an ECDSA P-256 / SHA-256 signature over signingInput with
// the key identified by keyRef. The result is the 64-byte JWS form (r||s).
type Signer interface {
	Sign(ctx context.Context, keyRef string, signingInput []byte) ([]byte, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, keyRef string, signingInput []byte) ([]byte, error)

func (f SignerFunc) Sign(ctx context.Context, keyRef string, signingInput []byte) ([]byte, error) {
	return f(ctx, keyRef, signingInput)
}

// ECDSASigner signs in process with PEM encoded P-256 keys (the .p8 files
// handed out by the developer portal). Parsed keys are kept per reference.
type ECDSASigner struct {
	// Load returns the PEM bytes for a key reference. Defaults to os.ReadFile.
	Load func(keyRef string) ([]byte, error)

	mu   sync.Mutex
	keys map[string]*ecdsa.PrivateKey
}

// NewECDSASigner returns a signer reading keys from the filesystem.
func NewECDSASigner() *ECDSASigner {
	return &ECDSASigner{Load: os.ReadFile}
}

func (s *ECDSASigner) Sign(_ context.Context, keyRef string, signingInput []byte) ([]byte, error) {
	key, err := s.key(keyRef)
	if err != nil {
		return nil, err
	}
	return jwt.SigningMethodES256.Sign(string(signingInput), key)
}

func (s *ECDSASigner) key(keyRef string) (*ecdsa.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[keyRef]; ok {
		return k, nil
	}

	load := s.Load
	if load == nil {
		load = os.ReadFile
	}
	data, err := load(keyRef)
	if err != nil {
		return nil, fmt.Errorf("load private key: %w", err)
	}

	key, err := jwt.ParseECPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("private key is not on curve P-256")
	}

	if s.keys == nil {
		s.keys = make(map[string]*ecdsa.PrivateKey)
	}
	s.keys[keyRef] = key
	return key, nil
}
