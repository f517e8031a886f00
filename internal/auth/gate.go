// Package auth is the admin gate: one configured operator credential pair that
// unlocks one static, non-expiring capability. There is no per-capability scope,
// expiry or revocation; whoever holds the token may insert, delete and upload.
package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"

	"examia/internal/apperr"
	"examia/internal/config"
)

// Capability is the opaque credential presented on mutating calls.
type Capability string

// Gate validates operator credentials and capabilities.
type Gate struct {
	identity   []byte
	secret     []byte
	secretHash []byte
	token      []byte
}

// NewGate builds a gate from the admin config. An incomplete config yields a
// gate that rejects every login and every capability.
func NewGate(cfg config.AdminConfig) *Gate {
	return &Gate{
		identity:   []byte(cfg.Identity),
		secret:     []byte(cfg.Secret),
		secretHash: []byte(cfg.SecretHash),
		token:      []byte(cfg.Token),
	}
}

// Enabled reports whether the gate can ever grant a capability.
func (g *Gate) Enabled() bool {
	return len(g.identity) > 0 && len(g.token) > 0 && (len(g.secret) > 0 || len(g.secretHash) > 0)
}

// Login checks identity and secret and returns the static capability.
// Both fields are always evaluated so the failure does not reveal which one was wrong.
func (g *Gate) Login(identity, secret string) (Capability, error) {
	if !g.Enabled() {
		return "", apperr.Authentication()
	}

	idOK := subtle.ConstantTimeCompare([]byte(identity), g.identity) == 1
	secretOK := g.checkSecret(secret)
	if !idOK || !secretOK {
		return "", apperr.Authentication()
	}
	return Capability(g.token), nil
}

func (g *Gate) checkSecret(secret string) bool {
	if len(g.secretHash) > 0 {
		return bcrypt.CompareHashAndPassword(g.secretHash, []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(secret), g.secret) == 1
}

// Authorize accepts exactly the configured capability.
func (g *Gate) Authorize(c Capability) error {
	if len(g.token) == 0 || c == "" {
		return apperr.Authorization()
	}
	if subtle.ConstantTimeCompare([]byte(c), g.token) != 1 {
		return apperr.Authorization()
	}
	return nil
}
