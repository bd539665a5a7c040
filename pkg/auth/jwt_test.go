package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"civic-reports/internal/models"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	userID := primitive.NewObjectID()

	token, err := m.GenerateToken(userID, "clerk@city.gov", models.RoleEmployee)
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, userID, claims.UserID)
	require.Equal(t, models.RoleEmployee, claims.Role)
	require.Equal(t, "clerk@city.gov", claims.Email)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret", time.Hour).GenerateToken(primitive.NewObjectID(), "", models.RoleCitizen)
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour).ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	token, err := m.GenerateToken(primitive.NewObjectID(), "", models.RoleCitizen)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	token, err := m.GenerateToken(primitive.NewObjectID(), "", models.UserRole("SUPER_ADMIN"))
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTManager("secret", time.Hour).ValidateToken(token)
	require.Error(t, err)
}
