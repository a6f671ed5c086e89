package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dev-299792/oauth2/internal/metrics"
	"github.com/dev-299792/oauth2/internal/models"
	"github.com/dev-299792/oauth2/internal/store"

	"github.com/google/uuid"
)

// ConsentService keeps the per-(user, client) consent ledger. Scopes only
// accumulate; the only way to shrink a grant is to revoke it entirely,
// which also kills every live token for the pair.
type ConsentService struct {
	store   *store.Store
	metrics metrics.Recorder
}

func NewConsentService(s *store.Store, m metrics.Recorder) *ConsentService {
	return &ConsentService{
		store:   s,
		metrics: m,
	}
}

// HasFullConsent reports whether the user's recorded consent for the
// client already covers every requested scope. No record means no consent.
func (s *ConsentService) HasFullConsent(userID, clientID, requestedScope string) (bool, error) {
	consent, err := s.store.GetConsentByUserAndClient(userID, clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load consent: %w", err)
	}
	return ScopesSubset(requestedScope, consent.Scopes), nil
}

// NewlyRequestedScopes returns the requested scopes the user has not yet
// approved for the client, for rendering on the consent page.
func (s *ConsentService) NewlyRequestedScopes(
	userID, clientID, requestedScope string,
) ([]string, error) {
	consent, err := s.store.GetConsentByUserAndClient(userID, clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return SplitScopes(requestedScope), nil
		}
		return nil, fmt.Errorf("failed to load consent: %w", err)
	}
	return ScopesDiff(requestedScope, consent.Scopes), nil
}

// RecordConsent merges the approved scopes into the user's consent record
// for the client, creating it if absent. Recording scopes already held is
// a no-op on the stored set, so the operation is idempotent.
func (s *ConsentService) RecordConsent(userID, clientID, approvedScope string) error {
	consent, err := s.store.GetConsentByUserAndClient(userID, clientID)
	if err != nil {
		if !errors.Is(err, store.ErrRecordNotFound) {
			return fmt.Errorf("failed to load consent: %w", err)
		}
		consent = &models.Consent{
			UUID:     uuid.New().String(),
			UserID:   userID,
			ClientID: clientID,
			IsActive: true,
		}
	}

	consent.Scopes = ScopesUnion(consent.Scopes, approvedScope)
	consent.GrantedAt = time.Now()

	if err := s.store.SaveConsent(consent); err != nil {
		return fmt.Errorf("failed to save consent: %w", err)
	}

	s.metrics.RecordConsentGranted()
	log.Printf("[Consent] User %s granted client %s scopes: %s", userID, clientID, consent.Scopes)
	return nil
}

// ListConsents returns the user's active consents, newest first.
func (s *ConsentService) ListConsents(userID string) ([]models.Consent, error) {
	return s.store.ListConsentsByUser(userID)
}

// Revoke removes the user's consent for the client and expires every live
// token pair issued under it, atomically. Tokens affected fail bearer
// verification on the next request.
func (s *ConsentService) Revoke(userID, clientID string) error {
	backdate := time.Now().Add(-time.Second)
	if err := s.store.RevokeConsentCascade(userID, clientID, backdate); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return ErrInvalidRequest
		}
		return fmt.Errorf("failed to revoke consent: %w", err)
	}

	s.metrics.RecordConsentRevoked()
	s.metrics.RecordTokenRevoked("consent_revoked")
	log.Printf("[Consent] User %s revoked client %s; live tokens expired", userID, clientID)
	return nil
}
