package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"examia/internal/apperr"
	"examia/internal/config"
)

var adminCfg = config.AdminConfig{
	Identity: "admin@examia.test",
	Secret:   "correct horse",
	Token:    "static-capability",
}

func TestGate_Login(t *testing.T) {
	gate := NewGate(adminCfg)

	tests := []struct {
		name     string
		identity string
		secret   string
		wantErr  bool
	}{
		{name: "correct pair", identity: "admin@examia.test", secret: "correct horse"},
		{name: "wrong secret", identity: "admin@examia.test", secret: "battery staple", wantErr: true},
		{name: "wrong identity", identity: "someone@examia.test", secret: "correct horse", wantErr: true},
		{name: "both empty", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capability, err := gate.Login(tt.identity, tt.secret)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrAuthentication)
				assert.Empty(t, capability)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, Capability("static-capability"), capability)
		})
	}
}

func TestGate_Login_GenericMessage(t *testing.T) {
	gate := NewGate(adminCfg)

	_, wrongSecret := gate.Login("admin@examia.test", "nope")
	_, wrongIdentity := gate.Login("nope", "correct horse")

	require.Error(t, wrongSecret)
	require.Error(t, wrongIdentity)
	assert.Equal(t, wrongSecret.Error(), wrongIdentity.Error())
	assert.NotContains(t, wrongSecret.Error(), "password")
	assert.NotContains(t, wrongSecret.Error(), "secret")
	assert.NotContains(t, wrongSecret.Error(), "identity")
}

func TestGate_Login_BcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed secret"), bcrypt.MinCost)
	require.NoError(t, err)

	gate := NewGate(config.AdminConfig{
		Identity:   "admin@examia.test",
		Secret:     "ignored when a hash is set",
		SecretHash: string(hash),
		Token:      "tok",
	})

	capability, err := gate.Login("admin@examia.test", "hashed secret")
	require.NoError(t, err)
	assert.Equal(t, Capability("tok"), capability)

	_, err = gate.Login("admin@examia.test", "ignored when a hash is set")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestGate_Authorize(t *testing.T) {
	gate := NewGate(adminCfg)

	assert.NoError(t, gate.Authorize("static-capability"))
	assert.ErrorIs(t, gate.Authorize("static-capabilit"), apperr.ErrAuthorization)
	assert.ErrorIs(t, gate.Authorize(""), apperr.ErrAuthorization)
}

func TestGate_Disabled(t *testing.T) {
	gate := NewGate(config.AdminConfig{})

	assert.False(t, gate.Enabled())
	_, err := gate.Login("", "")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	assert.ErrorIs(t, gate.Authorize(""), apperr.ErrAuthorization)
}
