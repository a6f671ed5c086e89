package store

import (
	"errors"
	"time"

	"github.com/dev-299792/oauth2/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the single source of truth for clients, authorization codes,
// token pairs, consents, and users. Engines never cache credential
// validity across requests; every check goes through here.
type Store struct {
	db *gorm.DB
}

func New(driver, dsn string) (*Store, error) {
	dialector, err := GetDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate
	if err := db.AutoMigrate(
		&models.User{},
		&models.Client{},
		&models.AuthorizationCode{},
		&models.AccessToken{},
		&models.Consent{},
	); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// DB returns the underlying GORM database connection (for transactions)
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Health checks the database connection
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// ============================================================
// Client operations
// ============================================================

func (s *Store) GetClient(clientID string) (*models.Client, error) {
	var client models.Client
	if err := s.db.Where("client_id = ?", clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &client, nil
}

func (s *Store) GetClientsByIDs(clientIDs []string) (map[string]*models.Client, error) {
	if len(clientIDs) == 0 {
		return make(map[string]*models.Client), nil
	}

	var clients []models.Client
	if err := s.db.Where("client_id IN ?", clientIDs).Find(&clients).Error; err != nil {
		return nil, err
	}

	clientMap := make(map[string]*models.Client, len(clients))
	for i := range clients {
		clientMap[clients[i].ClientID] = &clients[i]
	}
	return clientMap, nil
}

func (s *Store) CreateClient(client *models.Client) error {
	var count int64
	s.db.Model(&models.Client{}).Where("client_id = ?", client.ClientID).Count(&count)
	if count > 0 {
		return ErrClientIDConflict
	}
	return s.db.Create(client).Error
}

func (s *Store) UpdateClient(client *models.Client) error {
	return s.db.Save(client).Error
}

// ============================================================
// Authorization code operations
// ============================================================

func (s *Store) CreateAuthorizationCode(code *models.AuthorizationCode) error {
	return s.db.Create(code).Error
}

func (s *Store) GetAuthorizationCodeByHash(codeHash string) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode
	if err := s.db.Where("code_hash = ?", codeHash).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &code, nil
}

// ConsumeAuthorizationCode reads the code row and deletes it in the same
// call. The delete is keyed on the unique code_hash, so when two requests
// race, exactly one sees RowsAffected == 1; the loser gets
// ErrAuthCodeConsumed. Deleting an already-deleted code is not an error
// at the SQL level, which keeps the operation safe to retry after a
// caller-side timeout.
func (s *Store) ConsumeAuthorizationCode(codeHash string) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode
	if err := s.db.Where("code_hash = ?", codeHash).First(&code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	res := s.db.Where("code_hash = ?", codeHash).Delete(&models.AuthorizationCode{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrAuthCodeConsumed
	}
	return &code, nil
}

func (s *Store) DeleteExpiredAuthorizationCodes() error {
	return s.db.Where("expires_at < ?", time.Now()).
		Delete(&models.AuthorizationCode{}).Error
}

// ============================================================
// Token pair operations
// ============================================================

func (s *Store) CreateAccessToken(token *models.AccessToken) error {
	return s.db.Create(token).Error
}

func (s *Store) GetAccessTokenByHash(tokenHash string) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := s.db.Where("token_hash = ?", tokenHash).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetAccessTokenByRefreshTokenHash(
	refreshTokenHash string,
) (*models.AccessToken, error) {
	var t models.AccessToken
	if err := s.db.Where("refresh_token_hash = ?", refreshTokenHash).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &t, nil
}

// RotateTokenPair invalidates the old pair and persists the new one in a
// single transaction. The old pair's refresh token is soft-revoked by
// backdating refresh_token_expires_at, guarded by a conditional update so
// that concurrent rotations of the same refresh token yield exactly one
// winner. Either both the backdate and the insert commit, or neither does.
func (s *Store) RotateTokenPair(
	oldID string,
	backdate time.Time,
	newPair *models.AccessToken,
) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AccessToken{}).
			Where("id = ? AND refresh_token_expires_at > ?", oldID, time.Now()).
			Update("refresh_token_expires_at", backdate)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRefreshTokenRotated
		}
		return tx.Create(newPair).Error
	})
}

// RevokeTokensByUserAndClient soft-revokes every live token pair issued
// to the client for the user by backdating both expiry columns.
func (s *Store) RevokeTokensByUserAndClient(userID, clientID string, backdate time.Time) error {
	return s.db.Model(&models.AccessToken{}).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Where("expires_at > ? OR refresh_token_expires_at > ?", time.Now(), time.Now()).
		Updates(map[string]any{
			"expires_at":               backdate,
			"refresh_token_expires_at": backdate,
		}).Error
}

// DeleteDeadTokens removes token rows whose refresh token expired before
// the cutoff. Soft-revoked rows stay visible until the retention window
// passes, preserving the audit trail for recently rotated pairs.
func (s *Store) DeleteDeadTokens(cutoff time.Time) error {
	return s.db.Where("refresh_token_expires_at < ? AND expires_at < ?", cutoff, cutoff).
		Delete(&models.AccessToken{}).Error
}

// ============================================================
// Consent operations
// ============================================================

func (s *Store) GetConsentByUserAndClient(userID, clientID string) (*models.Consent, error) {
	var consent models.Consent
	err := s.db.Where("user_id = ? AND client_id = ? AND is_active = ?", userID, clientID, true).
		First(&consent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &consent, nil
}

func (s *Store) SaveConsent(consent *models.Consent) error {
	return s.db.Save(consent).Error
}

func (s *Store) ListConsentsByUser(userID string) ([]models.Consent, error) {
	var consents []models.Consent
	err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("granted_at DESC").
		Find(&consents).Error
	return consents, err
}

// RevokeConsentCascade deletes the consent row and soft-revokes every
// live token pair for the (user, client) pair in one transaction. This
// is a compensating action: after it commits, tokens fail verification
// immediately, not just after their natural TTL.
func (s *Store) RevokeConsentCascade(userID, clientID string, backdate time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND client_id = ?", userID, clientID).
			Delete(&models.Consent{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return tx.Model(&models.AccessToken{}).
			Where("user_id = ? AND client_id = ?", userID, clientID).
			Updates(map[string]any{
				"expires_at":               backdate,
				"refresh_token_expires_at": backdate,
			}).Error
	})
}

// ============================================================
// User operations
// ============================================================

func (s *Store) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(user *models.User) error {
	return s.db.Create(user).Error
}
