package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/dev-299792/oauth2/internal/models"
	"github.com/dev-299792/oauth2/internal/store"

	"github.com/google/uuid"
)

// ErrClientIDExists is returned when registering a client whose client_id
// is already taken.
var ErrClientIDExists = errors.New("client_id already exists")

// ClientRegistration is the input to Register.
type ClientRegistration struct {
	ClientName   string
	Description  string
	RedirectURIs []string
	Scopes       string
	GrantTypes   string
	ClientType   string // "confidential" (default) or "public"
	CreatedBy    string
}

// RegisteredClient is the one-time registration result. ClientSecret is
// plaintext here and nowhere else; only its bcrypt hash is stored.
type RegisteredClient struct {
	Client       *models.Client
	ClientSecret string
}

// ClientService registers and looks up OAuth clients.
type ClientService struct {
	store *store.Store
}

func NewClientService(s *store.Store) *ClientService {
	return &ClientService{store: s}
}

// Register creates a client. Confidential clients get a generated secret
// and client_secret_basic; public clients get no secret and must use PKCE.
func (s *ClientService) Register(
	ctx context.Context,
	reg *ClientRegistration,
) (*RegisteredClient, error) {
	if reg.ClientName == "" {
		return nil, fmt.Errorf("%w: client_name is required", ErrInvalidRequest)
	}
	if len(reg.RedirectURIs) == 0 {
		return nil, fmt.Errorf("%w: at least one redirect_uri is required", ErrInvalidRequest)
	}
	for _, raw := range reg.RedirectURIs {
		if err := validateRedirectURI(raw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}

	clientType := reg.ClientType
	if clientType == "" {
		clientType = models.ClientTypeConfidential
	}
	if clientType != models.ClientTypeConfidential && clientType != models.ClientTypePublic {
		return nil, fmt.Errorf("%w: unknown client type %q", ErrInvalidRequest, clientType)
	}

	grantTypes := reg.GrantTypes
	if grantTypes == "" {
		grantTypes = models.GrantTypeAuthorizationCode + " " + models.GrantTypeRefreshToken
	}

	authMethods := models.AuthMethodClientSecretBasic
	if clientType == models.ClientTypePublic {
		authMethods = models.AuthMethodNone
	}

	client := &models.Client{
		ClientID:     uuid.New().String(),
		ClientName:   reg.ClientName,
		Description:  reg.Description,
		Scopes:       reg.Scopes,
		GrantTypes:   grantTypes,
		AuthMethods:  authMethods,
		RedirectURIs: reg.RedirectURIs,
		ClientType:   clientType,
		IsActive:     true,
		CreatedBy:    reg.CreatedBy,
	}

	var plainSecret string
	if clientType == models.ClientTypeConfidential {
		var err error
		plainSecret, err = client.GenerateClientSecret(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate client secret: %w", err)
		}
	}

	if err := s.store.CreateClient(client); err != nil {
		if errors.Is(err, store.ErrClientIDConflict) {
			return nil, ErrClientIDExists
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	log.Printf("[Client] Registered %s client %s (%s)",
		clientType, client.ClientID, client.ClientName)
	return &RegisteredClient{Client: client, ClientSecret: plainSecret}, nil
}

// GetClient looks up an active client by client_id.
func (s *ClientService) GetClient(clientID string) (*models.Client, error) {
	client, err := s.store.GetClient(clientID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if !client.IsActive {
		return nil, ErrInvalidClient
	}
	return client, nil
}

// Authenticate verifies client credentials presented at the token
// endpoint. Public clients authenticate with client_id alone (method
// "none"); confidential clients must present their secret.
func (s *ClientService) Authenticate(clientID, clientSecret string) (*models.Client, error) {
	client, err := s.GetClient(clientID)
	if err != nil {
		return nil, err
	}

	if client.ClientType == models.ClientTypePublic {
		if clientSecret != "" {
			return nil, ErrInvalidClient
		}
		if !client.HasAuthMethod(models.AuthMethodNone) {
			return nil, ErrInvalidClient
		}
		return client, nil
	}

	if !client.HasAuthMethod(models.AuthMethodClientSecretBasic) {
		return nil, ErrInvalidClient
	}
	if !client.ValidateClientSecret([]byte(clientSecret)) {
		return nil, ErrInvalidClient
	}
	return client, nil
}

// Deactivate disables a client after verifying its own credentials.
// The row is kept so existing token and consent records stay
// attributable; the client just can't be issued anything new.
func (s *ClientService) Deactivate(clientID, clientSecret string) error {
	client, err := s.Authenticate(clientID, clientSecret)
	if err != nil {
		return err
	}
	client.IsActive = false
	if err := s.store.UpdateClient(client); err != nil {
		return fmt.Errorf("failed to deactivate client: %w", err)
	}
	log.Printf("[Client] Deactivated client %s", clientID)
	return nil
}

func validateRedirectURI(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("redirect_uri %q is not a valid URI", raw)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("redirect_uri %q must be absolute", raw)
	}
	if u.Fragment != "" {
		return fmt.Errorf("redirect_uri %q must not contain a fragment", raw)
	}
	return nil
}
