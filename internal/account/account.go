// Package account holds the durable list of known Claude accounts and the
// app-scoped credential storage that backs it.
package account

import (
	"time"

	"github.com/google/uuid"
)

// Account is one registered Claude account. Accounts are owned by the
// Registry and mutated only through its operations.
type Account struct {
	ID               uuid.UUID `json:"id"`
	EmailAddress     string    `json:"emailAddress"`
	AccountUUID      string    `json:"accountUuid"`
	DisplayName      string    `json:"displayName"`
	OrganizationName string    `json:"organizationName,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	LastUsedAt       time.Time `json:"lastUsedAt"`
	Order            int       `json:"order"`
}

// New builds an Account with a fresh id and timestamps. Order is assigned
// by the Registry when the account is added.
func New(emailAddress, accountUUID, displayName, organizationName string) Account {
	now := time.Now().UTC()
	return Account{
		ID:               uuid.New(),
		EmailAddress:     emailAddress,
		AccountUUID:      accountUUID,
		DisplayName:      displayName,
		OrganizationName: organizationName,
		CreatedAt:        now,
		LastUsedAt:       now,
	}
}

// Credentials is the OAuth token material stored for an account. The
// structure mirrors the Claude Code keychain payload so the bytes written
// into the external slot are what the tool expects. Opaque beyond the
// access token; never logged.
type Credentials struct {
	ClaudeAiOauth OAuthToken `json:"claudeAiOauth"`
}

// OAuthToken is the inner token record of Credentials.
type OAuthToken struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	TokenType    string     `json:"tokenType,omitempty"`
}

// AccessToken returns the bearer token used for API calls.
func (c Credentials) AccessToken() string {
	return c.ClaudeAiOauth.AccessToken
}
