package storage

import "time"

// FlowKind tags which authorization flow provisioned a RefreshTokenRecord
// or owns a FlowSession.
type FlowKind string

const (
	FlowDirect         FlowKind = "direct"
	FlowServerMediated FlowKind = "server-mediated"
	FlowHybrid         FlowKind = "hybrid"
)

// RefreshTokenRecord is the persisted refresh-token row; exactly one
// exists per user, keyed by the stable `sub` claim.
type RefreshTokenRecord struct {
	UserID               string
	EncryptedToken       []byte
	ExpiresAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Flow                 FlowKind
	TokenAudience        string
	ProvisionedAt        *time.Time
	ProvisioningClientID string
	Scopes               []string
	UserProfile          string
	ProfileCachedAt      *time.Time
}

// OAuthClientCredentials is the single-row table of the bridge's own
// registered OAuth client identity.
type OAuthClientCredentials struct {
	ClientID                  string
	EncryptedClientSecret     []byte
	ClientIDIssuedAt          *time.Time
	ClientSecretExpiresAt     *time.Time
	RedirectURIs              []string
	EncryptedRegistrationToken []byte
	RegistrationClientURI     string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// Expired reports whether this credentials row has passed its expiry;
// once expired, the row is deleted on read.
func (c *OAuthClientCredentials) Expired(now time.Time) bool {
	return c.ClientSecretExpiresAt != nil && now.After(*c.ClientSecretExpiresAt)
}

// FlowSession is a single in-flight or completed authorization flow,
// keyed by a server-generated session id with a secondary unique key on
// the server-issued authorization code.
type FlowSession struct {
	SessionID           string
	ClientID             string
	ClientRedirectURI    string
	State                string
	CodeChallenge        string
	CodeChallengeMethod  string
	// CodeVerifier is the PKCE verifier the bridge generated for a
	// server-mediated flow it drives as its own OAuth client; it isn't
	// part of the inbound authorization request and so has no analog in
	// Flow A sessions, but Flow B/login sessions need it to complete the
	// token exchange.
	CodeVerifier         string
	AuthorizationCode    string
	IDPAccessToken       string
	IDPRefreshToken      string
	UserID               string
	CreatedAt            time.Time
	ExpiresAt            time.Time
	Flow                 FlowKind
	RequestedScopes      []string
	GrantedScopes        []string
	IsProvisioning       bool
}

// WebhookRegistration is a webhook the bridge has registered with the
// upstream, keyed by the upstream-assigned numeric id.
type WebhookRegistration struct {
	WebhookID string
	PresetID  string
	CreatedAt time.Time
}

// AuditEntry is a single append-only audit row.
type AuditEntry struct {
	ID           int64
	Timestamp    time.Time
	Event        string
	UserID       string
	ResourceType string
	ResourceID   string
	AuthMethod   string
	Hostname     string
}

// AppPassword is the encrypted upstream app password for a multi-user
// Basic mode user.
type AppPassword struct {
	UserID           string
	EncryptedPassword []byte
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// DefaultFlowSessionTTL is the default lifetime of an in-flight
// authorization session.
const DefaultFlowSessionTTL = 600 * time.Second
