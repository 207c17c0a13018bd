package tokens

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret-32-bytes-should-be-long-enough"

func TestGenerateAccessToken_VerifiesAndCarriesSubject(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "user-123", 2*time.Minute)
	require.NoError(t, err)

	verified, err := NewVerifier(secret).Verify(context.Background(), tok)
	require.NoError(t, err)
	var claims map[string]interface{}
	require.NoError(t, verified.Claims(&claims))
	require.Equal(t, "user-123", claims["sub"])
	require.Equal(t, Issuer, claims["iss"])
}

func TestGenerateAccessToken_EmptySecret(t *testing.T) {
	_, err := GenerateAccessToken("", "u", time.Minute)
	require.Error(t, err)
}

func TestVerify_Expired(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "u2", -time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier(secret).Verify(context.Background(), tok)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerify_WrongSecretFails(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "u3", time.Minute)
	require.NoError(t, err)
	_, err = NewVerifier("different-secret-xxxxxxxxxxxxxxxx").Verify(context.Background(), tok)
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	_, err := NewVerifier(secret).Verify(context.Background(), "not.a.jwt")
	require.Error(t, err)
}

// Rejected when alg=none (unsigned token)
func TestVerify_AlgNoneRejected(t *testing.T) {
	headerEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	payloadEnc := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"u-none","iss":"personstore","exp":9999999999}`))
	_, err := NewVerifier(secret).Verify(context.Background(), headerEnc+"."+payloadEnc+".")
	require.Error(t, err)
}

func TestVerify_MissingExpiryRejected(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": Issuer, "sub": "x"}).SignedString([]byte(secret))
	require.NoError(t, err)
	_, err = NewVerifier(secret).Verify(context.Background(), tok)
	require.Error(t, err)
}

// Tampering with payload must fail signature verification
func TestVerify_TamperedPayload(t *testing.T) {
	tok, err := GenerateAccessToken(secret, "user-t", 5*time.Minute)
	require.NoError(t, err)
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(strings.Replace(string(payload), "user-t", "attacker", 1)))
	_, err = NewVerifier(secret).Verify(context.Background(), strings.Join(parts, "."))
	require.Error(t, err)
}
