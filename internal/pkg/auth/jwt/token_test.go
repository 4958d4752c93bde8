package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "unit-test-secret"

func TestGenerateAndParseToken(t *testing.T) {
	payload := &Payload{
		UserID:   42,
		Username: "alice_01",
	}

	tokenString, err := GenerateToken(payload, testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	parsed, err := ParseToken(tokenString, testSecret)
	require.NoError(t, err)
	assert.Equal(t, int64(42), parsed.UserID)
	assert.Equal(t, "alice_01", parsed.Username)
	assert.Equal(t, TokenIssuer, parsed.Issuer)
}

func TestParseTokenWrongSecret(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{UserID: 42}, testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, "some-other-secret")
	require.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	tokenString, err := GenerateToken(&Payload{UserID: 42}, testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(tokenString, testSecret)
	require.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	_, err := ParseToken("definitely.not.a-jwt", testSecret)
	require.Error(t, err)
}
