package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "giftledger", ExpirationMinutes: 30}

func TestMintAndParseAccessToken(t *testing.T) {
	now := time.Now().UTC()
	userID := uuid.New()
	supplierID := uuid.New()

	token, minted, err := MintAccessToken(testJWT, now, AccessTokenPayload{
		UserID:     userID,
		Role:       enums.RoleSupplier,
		SupplierID: &supplierID,
		JTI:        "access-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-1", minted.ID)

	claims, err := ParseAccessToken(testJWT, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, enums.RoleSupplier, claims.Role)
	require.NotNil(t, claims.SupplierID)
	assert.Equal(t, supplierID, *claims.SupplierID)
	assert.Equal(t, "access-1", claims.ID)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintAccessTokenGeneratesJTI(t *testing.T) {
	_, claims, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestMintAccessTokenValidation(t *testing.T) {
	_, _, err := MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 1}, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleAdmin})
	assert.Error(t, err)

	_, _, err = MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: "ROOT"})
	assert.Error(t, err)

	_, _, err = MintAccessToken(testJWT, time.Now(), AccessTokenPayload{Role: enums.RoleAdmin})
	assert.Error(t, err)
}

func TestParseAccessTokenRejects(t *testing.T) {
	token, _, err := MintAccessToken(testJWT, time.Now().Add(-time.Hour), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleViewer})
	require.NoError(t, err)
	_, err = ParseAccessToken(testJWT, token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	fresh, _, err := MintAccessToken(testJWT, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.RoleViewer})
	require.NoError(t, err)

	other := testJWT
	other.Secret = "different"
	_, err = ParseAccessToken(other, fresh)
	assert.Error(t, err)

	other = testJWT
	other.Issuer = "someone-else"
	_, err = ParseAccessToken(other, fresh)
	assert.Error(t, err)
}
