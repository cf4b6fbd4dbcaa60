package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-that-is-long-enough-123"

func TestGenerateAndValidateToken(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour, time.Hour)
	userID := uuid.New()

	token, err := mgr.GenerateToken(RealmUser, userID, "user@example.com", "")
	require.NoError(t, err)

	claims, err := mgr.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, RealmUser, claims.Realm)
	assert.Equal(t, "user@example.com", claims.Email)
}

func TestValidateTokenForRealm(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour, time.Hour)

	token, err := mgr.GenerateToken(RealmUser, uuid.New(), "", "")
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealm(token, RealmUser)
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealm(token, RealmAdmin)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected realm admin")
}

func TestValidateTokenWrongSecret(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour, time.Hour)
	other := NewJWTManager("a-completely-different-secret-456789", time.Hour, time.Hour)

	token, err := mgr.GenerateToken(RealmAdmin, uuid.New(), "", "operator")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	mgr := NewJWTManager(testSecret, -time.Minute, time.Hour)

	token, err := mgr.GenerateToken(RealmUser, uuid.New(), "", "")
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	require.Error(t, err)
}

func TestGenerateTokenUnknownRealm(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour, time.Hour)

	_, err := mgr.GenerateToken(Realm("bot"), uuid.New(), "", "")
	require.Error(t, err)
}

func TestAdminRoleClaim(t *testing.T) {
	mgr := NewJWTManager(testSecret, time.Hour, time.Hour)

	token, err := mgr.GenerateToken(RealmAdmin, uuid.New(), "ops@example.com", "superadmin")
	require.NoError(t, err)

	claims, err := mgr.ValidateTokenForRealm(token, RealmAdmin)
	require.NoError(t, err)
	assert.Equal(t, "superadmin", claims.Role)
}
