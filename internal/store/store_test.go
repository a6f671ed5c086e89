package store

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dev-299792/oauth2/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("sqlite", ":memory:")
	require.NoError(t, err)
	return s
}

func createTestClient(t *testing.T, s *Store) *models.Client {
	t.Helper()
	client := &models.Client{
		ClientID:     uuid.New().String(),
		ClientSecret: "hashed-secret",
		ClientName:   "Test Client",
		Scopes:       "read write",
		GrantTypes:   "authorization_code refresh_token",
		AuthMethods:  "client_secret_basic",
		RedirectURIs: models.StringArray{"https://app.example.com/callback"},
		ClientType:   "confidential",
		IsActive:     true,
	}
	require.NoError(t, s.CreateClient(client))
	return client
}

func createTestCode(t *testing.T, s *Store, clientID string, ttl time.Duration) *models.AuthorizationCode {
	t.Helper()
	code := &models.AuthorizationCode{
		UUID:        uuid.New().String(),
		CodeHash:    uuid.New().String(), // stand-in hash, unique per test
		CodePrefix:  "deadbeef",
		ClientID:    clientID,
		UserID:      uuid.New().String(),
		RedirectURI: "https://app.example.com/callback",
		Scopes:      "read",
		ExpiresAt:   time.Now().Add(ttl),
	}
	require.NoError(t, s.CreateAuthorizationCode(code))
	return code
}

func createTestTokenPair(t *testing.T, s *Store, userID, clientID string) *models.AccessToken {
	t.Helper()
	pair := &models.AccessToken{
		ID:                    uuid.New().String(),
		TokenHash:             uuid.New().String(),
		RefreshTokenHash:      uuid.New().String(),
		TokenType:             "Bearer",
		UserID:                userID,
		ClientID:              clientID,
		Scopes:                "read",
		ExpiresAt:             time.Now().Add(5 * time.Minute),
		RefreshTokenExpiresAt: time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, s.CreateAccessToken(pair))
	return pair
}

// ============================================================
// Clients
// ============================================================

func TestCreateClient_DuplicateClientID(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)

	dup := &models.Client{
		ClientID:     client.ClientID,
		ClientName:   "Duplicate",
		Scopes:       "read",
		RedirectURIs: models.StringArray{"https://other.example.com/cb"},
	}
	err := s.CreateClient(dup)
	assert.ErrorIs(t, err, ErrClientIDConflict)
}

func TestGetClient_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetClient("nonexistent")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestGetClientsByIDs(t *testing.T) {
	s := setupTestStore(t)
	c1 := createTestClient(t, s)
	c2 := createTestClient(t, s)

	m, err := s.GetClientsByIDs([]string{c1.ClientID, c2.ClientID, "missing"})
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, c1.ClientName, m[c1.ClientID].ClientName)
}

// ============================================================
// Authorization codes
// ============================================================

func TestConsumeAuthorizationCode_OneShot(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)
	code := createTestCode(t, s, client.ClientID, time.Minute)

	consumed, err := s.ConsumeAuthorizationCode(code.CodeHash)
	require.NoError(t, err)
	assert.Equal(t, code.UserID, consumed.UserID)

	// Second consumption of the same code must fail
	_, err = s.ConsumeAuthorizationCode(code.CodeHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestConsumeAuthorizationCode_Concurrent(t *testing.T) {
	s := setupTestStore(t)
	sqlDB, err := s.DB().DB()
	require.NoError(t, err)
	// A single pool connection keeps every goroutine on the same
	// :memory: database.
	sqlDB.SetMaxOpenConns(1)

	client := createTestClient(t, s)
	code := createTestCode(t, s, client.ClientID, time.Minute)

	const redeemers = 16
	errs := make(chan error, redeemers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.ConsumeAuthorizationCode(code.CodeHash)
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	// Exactly one redeemer may win; every loser gets one of the two
	// consumed sentinels.
	var wins int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		lost := errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrAuthCodeConsumed)
		assert.True(t, lost, "unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins)

	_, err = s.GetAuthorizationCodeByHash(code.CodeHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestConsumeAuthorizationCode_RaceLoser(t *testing.T) {
	s, err := New("sqlite", filepath.Join(t.TempDir(), "oauth2.db"))
	require.NoError(t, err)
	client := createTestClient(t, s)
	code := createTestCode(t, s, client.ClientID, time.Minute)

	// Snatch the row away between the read and the delete, the way a
	// concurrent redeemer that reached the delete first would.
	var once sync.Once
	err = s.DB().Callback().Delete().Before("gorm:delete").
		Register("test_snatch_code", func(tx *gorm.DB) {
			once.Do(func() {
				tx.Session(&gorm.Session{NewDB: true}).
					Exec("DELETE FROM authorization_codes WHERE code_hash = ?", code.CodeHash)
			})
		})
	require.NoError(t, err)

	_, err = s.ConsumeAuthorizationCode(code.CodeHash)
	assert.ErrorIs(t, err, ErrAuthCodeConsumed)
}

func TestConsumeAuthorizationCode_Unknown(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.ConsumeAuthorizationCode("no-such-hash")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteExpiredAuthorizationCodes(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)
	expired := createTestCode(t, s, client.ClientID, -time.Minute)
	live := createTestCode(t, s, client.ClientID, time.Minute)

	require.NoError(t, s.DeleteExpiredAuthorizationCodes())

	_, err := s.GetAuthorizationCodeByHash(expired.CodeHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = s.GetAuthorizationCodeByHash(live.CodeHash)
	assert.NoError(t, err)
}

// ============================================================
// Token pairs
// ============================================================

func TestRotateTokenPair(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)
	userID := uuid.New().String()
	old := createTestTokenPair(t, s, userID, client.ClientID)

	backdate := time.Now().Add(-time.Hour)
	newPair := &models.AccessToken{
		ID:                    uuid.New().String(),
		TokenHash:             uuid.New().String(),
		RefreshTokenHash:      uuid.New().String(),
		TokenType:             "Bearer",
		UserID:                userID,
		ClientID:              client.ClientID,
		Scopes:                "read",
		ExpiresAt:             time.Now().Add(5 * time.Minute),
		RefreshTokenExpiresAt: time.Now().Add(30 * time.Minute),
		ParentTokenID:         old.ID,
	}
	require.NoError(t, s.RotateTokenPair(old.ID, backdate, newPair))

	// Old pair's refresh token is now backdated
	stored, err := s.GetAccessTokenByRefreshTokenHash(old.RefreshTokenHash)
	require.NoError(t, err)
	assert.True(t, stored.IsRefreshTokenExpired())

	// New pair is live
	fresh, err := s.GetAccessTokenByRefreshTokenHash(newPair.RefreshTokenHash)
	require.NoError(t, err)
	assert.False(t, fresh.IsRefreshTokenExpired())
}

func TestRotateTokenPair_AlreadyRotated(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)
	userID := uuid.New().String()
	old := createTestTokenPair(t, s, userID, client.ClientID)

	backdate := time.Now().Add(-time.Hour)
	first := &models.AccessToken{
		ID:                    uuid.New().String(),
		TokenHash:             uuid.New().String(),
		RefreshTokenHash:      uuid.New().String(),
		UserID:                userID,
		ClientID:              client.ClientID,
		Scopes:                "read",
		ExpiresAt:             time.Now().Add(5 * time.Minute),
		RefreshTokenExpiresAt: time.Now().Add(30 * time.Minute),
	}
	require.NoError(t, s.RotateTokenPair(old.ID, backdate, first))

	// A second rotation of the same pair must lose the conditional update
	second := &models.AccessToken{
		ID:                    uuid.New().String(),
		TokenHash:             uuid.New().String(),
		RefreshTokenHash:      uuid.New().String(),
		UserID:                userID,
		ClientID:              client.ClientID,
		Scopes:                "read",
		ExpiresAt:             time.Now().Add(5 * time.Minute),
		RefreshTokenExpiresAt: time.Now().Add(30 * time.Minute),
	}
	err := s.RotateTokenPair(old.ID, backdate, second)
	assert.ErrorIs(t, err, ErrRefreshTokenRotated)

	// The loser's pair must not have been persisted (transaction rollback)
	_, err = s.GetAccessTokenByRefreshTokenHash(second.RefreshTokenHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

// ============================================================
// Consents
// ============================================================

func TestRevokeConsentCascade(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)
	userID := uuid.New().String()

	consent := &models.Consent{
		UUID:      uuid.New().String(),
		UserID:    userID,
		ClientID:  client.ClientID,
		Scopes:    "read write",
		GrantedAt: time.Now(),
		IsActive:  true,
	}
	require.NoError(t, s.SaveConsent(consent))
	pair := createTestTokenPair(t, s, userID, client.ClientID)

	backdate := time.Now().Add(-time.Hour)
	require.NoError(t, s.RevokeConsentCascade(userID, client.ClientID, backdate))

	// Consent gone
	_, err := s.GetConsentByUserAndClient(userID, client.ClientID)
	assert.ErrorIs(t, err, ErrRecordNotFound)

	// Token pair soft-revoked: both expiries backdated
	stored, err := s.GetAccessTokenByHash(pair.TokenHash)
	require.NoError(t, err)
	assert.True(t, stored.IsExpired())
	assert.True(t, stored.IsRefreshTokenExpired())
}

func TestRevokeConsentCascade_NoConsent(t *testing.T) {
	s := setupTestStore(t)

	err := s.RevokeConsentCascade("u", "c", time.Now().Add(-time.Hour))
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDeleteDeadTokens(t *testing.T) {
	s := setupTestStore(t)
	client := createTestClient(t, s)
	userID := uuid.New().String()

	dead := &models.AccessToken{
		ID:                    uuid.New().String(),
		TokenHash:             uuid.New().String(),
		RefreshTokenHash:      uuid.New().String(),
		UserID:                userID,
		ClientID:              client.ClientID,
		Scopes:                "read",
		ExpiresAt:             time.Now().Add(-2 * time.Hour),
		RefreshTokenExpiresAt: time.Now().Add(-2 * time.Hour),
	}
	require.NoError(t, s.CreateAccessToken(dead))
	live := createTestTokenPair(t, s, userID, client.ClientID)

	require.NoError(t, s.DeleteDeadTokens(time.Now().Add(-time.Hour)))

	_, err := s.GetAccessTokenByHash(dead.TokenHash)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = s.GetAccessTokenByHash(live.TokenHash)
	assert.NoError(t, err)
}
