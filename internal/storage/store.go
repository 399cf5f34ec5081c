// Package storage implements the bridge's persistence layer: a
// single-writer, async-safe SQLite database opened lazily and migrated
// idempotently on first access, with `encrypted_*` columns sealed by
// internal/cryptobox.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"os"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
	"github.com/stacklok/nc-bridge/internal/cryptobox"
	"github.com/stacklok/nc-bridge/internal/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// dbFileMode tightens the SQLite file to owner-only.
const dbFileMode = 0o600

// Store is the single entry point for all persisted bridge state.
type Store struct {
	db  *sql.DB
	box *cryptobox.Box
}

// Open opens (creating if necessary) the SQLite file at path, tightens
// its permissions, and runs pending migrations. box may be nil only in
// tests that never touch encrypted columns; production callers always
// pass a configured cryptobox.Box.
func Open(path string, box *cryptobox.Box) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, bridgeerrors.NewStorageError("opening database", err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer.

	if path != ":memory:" {
		if err := os.Chmod(path, dbFileMode); err != nil && !os.IsNotExist(err) {
			logging.Warnw("failed to chmod database file", "path", path, "error", err)
		}
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return nil, bridgeerrors.NewStorageError("setting migration dialect", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return nil, bridgeerrors.NewStorageError("running migrations", err)
	}

	return &Store{db: db, box: box}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// --- refresh tokens -------------------------------------------------------

// PutRefreshToken upserts the refresh token row for user_id, preserving
// the original created_at on update.
func (s *Store) PutRefreshToken(
	ctx context.Context,
	userID, token string,
	expiresAt *time.Time,
	flow FlowKind,
	audience, provisioningClientID string,
	scopes []string,
) error {
	if s.box == nil {
		return bridgeerrors.NewConfigError("cannot write encrypted field: no encryption key configured", nil)
	}
	encrypted, err := s.box.SealString(token)
	if err != nil {
		return bridgeerrors.NewStorageError("sealing refresh token", err)
	}
	scopesJSON, err := json.Marshal(scopes)
	if err != nil {
		return bridgeerrors.NewStorageError("marshalling scopes", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens
			(user_id, encrypted_token, expires_at, created_at, updated_at, flow_type, token_audience, provisioning_client_id, scopes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at,
			flow_type = excluded.flow_type,
			token_audience = excluded.token_audience,
			provisioning_client_id = excluded.provisioning_client_id,
			scopes = excluded.scopes
	`, userID, encrypted, nullableUnixPtr(expiresAt), now.Unix(), now.Unix(), string(flow), audience, provisioningClientID, string(scopesJSON))
	if err != nil {
		return bridgeerrors.NewStorageError("upserting refresh token", err)
	}
	return nil
}

// GetRefreshToken returns the stored record, or nil if absent or expired
// (in which case the row is deleted as a side effect).
func (s *Store) GetRefreshToken(ctx context.Context, userID string) (*RefreshTokenRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, encrypted_token, expires_at, created_at, updated_at, flow_type,
		       token_audience, provisioned_at, provisioning_client_id, scopes, user_profile, profile_cached_at
		FROM refresh_tokens WHERE user_id = ?`, userID)
	rec, err := scanRefreshToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, bridgeerrors.NewStorageError("reading refresh token", err)
	}
	if rec.ExpiresAt != nil && time.Now().After(*rec.ExpiresAt) {
		if _, delErr := s.DeleteRefreshToken(ctx, userID); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	}
	return rec, nil
}

// GetRefreshTokenByProvisioningClientID looks up a record by the flow's
// provisioning client id (used to correlate a completed server-mediated
// flow back to its originating session).
func (s *Store) GetRefreshTokenByProvisioningClientID(ctx context.Context, clientID string) (*RefreshTokenRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, encrypted_token, expires_at, created_at, updated_at, flow_type,
		       token_audience, provisioned_at, provisioning_client_id, scopes, user_profile, profile_cached_at
		FROM refresh_tokens WHERE provisioning_client_id = ?`, clientID)
	rec, err := scanRefreshToken(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, bridgeerrors.NewStorageError("reading refresh token by provisioning client id", err)
	}
	return rec, nil
}

// DeleteRefreshToken removes the row for userID; returns false (not an
// error) if no such row existed.
func (s *Store) DeleteRefreshToken(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return false, bridgeerrors.NewStorageError("deleting refresh token", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, bridgeerrors.NewStorageError("counting deleted rows", err)
	}
	return n > 0, nil
}

// PlaintextToken decrypts a record's refresh token, honouring the
// encryption contract: a wrong/corrupt ciphertext yields ("", false).
func (s *Store) PlaintextToken(rec *RefreshTokenRecord) (string, bool) {
	return s.box.OpenString(rec.EncryptedToken)
}

// PutUserProfile caches a user's upstream profile JSON on their refresh
// token row.
func (s *Store) PutUserProfile(ctx context.Context, userID, profileJSON string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET user_profile = ?, profile_cached_at = ? WHERE user_id = ?`,
		profileJSON, time.Now().Unix(), userID)
	if err != nil {
		return bridgeerrors.NewStorageError("caching user profile", err)
	}
	return nil
}

// GetUserProfile returns the cached profile JSON, if any.
func (s *Store) GetUserProfile(ctx context.Context, userID string) (string, bool, error) {
	var profile sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT user_profile FROM refresh_tokens WHERE user_id = ?`, userID).Scan(&profile)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, bridgeerrors.NewStorageError("reading user profile", err)
	}
	return profile.String, profile.Valid && profile.String != "", nil
}

func scanRefreshToken(row *sql.Row) (*RefreshTokenRecord, error) {
	var rec RefreshTokenRecord
	var expiresAt, provisionedAt, profileCachedAt sql.NullInt64
	var createdAt, updatedAt int64
	var flow, audience, provisioningClientID, scopesJSON, profile sql.NullString

	err := row.Scan(&rec.UserID, &rec.EncryptedToken, &expiresAt, &createdAt, &updatedAt, &flow,
		&audience, &provisionedAt, &provisioningClientID, &scopesJSON, &profile, &profileCachedAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = time.Unix(createdAt, 0)
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	rec.Flow = FlowKind(flow.String)
	rec.TokenAudience = audience.String
	rec.ProvisioningClientID = provisioningClientID.String
	rec.UserProfile = profile.String
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0)
		rec.ExpiresAt = &t
	}
	if provisionedAt.Valid {
		t := time.Unix(provisionedAt.Int64, 0)
		rec.ProvisionedAt = &t
	}
	if profileCachedAt.Valid {
		t := time.Unix(profileCachedAt.Int64, 0)
		rec.ProfileCachedAt = &t
	}
	if scopesJSON.Valid && scopesJSON.String != "" {
		_ = json.Unmarshal([]byte(scopesJSON.String), &rec.Scopes)
	}
	return &rec, nil
}

// --- OAuth client credentials (single row, id=1) --------------------------

// PutOAuthClient upserts the bridge's own registered client identity.
func (s *Store) PutOAuthClient(
	ctx context.Context,
	clientID, clientSecret string,
	issuedAt time.Time,
	expiresAt *time.Time,
	redirectURIs []string,
	managementToken, managementURI string,
) error {
	if s.box == nil {
		return bridgeerrors.NewConfigError("cannot write encrypted field: no encryption key configured", nil)
	}
	encSecret, err := s.box.SealString(clientSecret)
	if err != nil {
		return bridgeerrors.NewStorageError("sealing client secret", err)
	}
	var encRegToken []byte
	if managementToken != "" {
		encRegToken, err = s.box.SealString(managementToken)
		if err != nil {
			return bridgeerrors.NewStorageError("sealing registration access token", err)
		}
	}
	urisJSON, err := json.Marshal(redirectURIs)
	if err != nil {
		return bridgeerrors.NewStorageError("marshalling redirect uris", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO oauth_clients
			(id, client_id, encrypted_client_secret, client_id_issued_at, client_secret_expires_at,
			 redirect_uris, encrypted_registration_access_token, registration_client_uri, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			encrypted_client_secret = excluded.encrypted_client_secret,
			client_secret_expires_at = excluded.client_secret_expires_at,
			redirect_uris = excluded.redirect_uris,
			encrypted_registration_access_token = excluded.encrypted_registration_access_token,
			registration_client_uri = excluded.registration_client_uri,
			updated_at = excluded.updated_at
	`, clientID, encSecret, issuedAt.Unix(), nullableUnixPtr(expiresAt), string(urisJSON), encRegToken, managementURI, now.Unix(), now.Unix())
	if err != nil {
		return bridgeerrors.NewStorageError("upserting oauth client", err)
	}
	return nil
}

// GetOAuthClient returns the persisted client row, deleting and returning
// nil if it has expired.
func (s *Store) GetOAuthClient(ctx context.Context) (*OAuthClientCredentials, error) {
	var creds OAuthClientCredentials
	var issuedAt, expiresAt sql.NullInt64
	var uris sql.NullString
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT client_id, encrypted_client_secret, client_id_issued_at, client_secret_expires_at,
		       redirect_uris, encrypted_registration_access_token, registration_client_uri, created_at, updated_at
		FROM oauth_clients WHERE id = 1`).Scan(
		&creds.ClientID, &creds.EncryptedClientSecret, &issuedAt, &expiresAt,
		&uris, &creds.EncryptedRegistrationToken, &creds.RegistrationClientURI, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, bridgeerrors.NewStorageError("reading oauth client", err)
	}
	creds.CreatedAt = time.Unix(createdAt, 0)
	creds.UpdatedAt = time.Unix(updatedAt, 0)
	if issuedAt.Valid {
		t := time.Unix(issuedAt.Int64, 0)
		creds.ClientIDIssuedAt = &t
	}
	if expiresAt.Valid {
		t := time.Unix(expiresAt.Int64, 0)
		creds.ClientSecretExpiresAt = &t
	}
	if uris.Valid && uris.String != "" {
		_ = json.Unmarshal([]byte(uris.String), &creds.RedirectURIs)
	}

	if creds.Expired(time.Now()) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_clients WHERE id = 1`); err != nil {
			return nil, bridgeerrors.NewStorageError("deleting expired oauth client", err)
		}
		return nil, nil
	}
	return &creds, nil
}

// HasValidOAuthClient reports whether an unexpired client row exists.
func (s *Store) HasValidOAuthClient(ctx context.Context) (bool, error) {
	creds, err := s.GetOAuthClient(ctx)
	if err != nil {
		return false, err
	}
	return creds != nil, nil
}

// --- flow sessions ---------------------------------------------------------

// PutFlowSession inserts a new session with the given TTL (0 selects
// DefaultFlowSessionTTL).
func (s *Store) PutFlowSession(ctx context.Context, fs *FlowSession, ttl time.Duration) error {
	if ttl == 0 {
		ttl = DefaultFlowSessionTTL
	}
	now := time.Now()
	expiresAt := now.Add(ttl)
	reqScopes, err := json.Marshal(fs.RequestedScopes)
	if err != nil {
		return bridgeerrors.NewStorageError("marshalling requested scopes", err)
	}
	grantedScopes, err := json.Marshal(fs.GrantedScopes)
	if err != nil {
		return bridgeerrors.NewStorageError("marshalling granted scopes", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO oauth_sessions
			(session_id, client_id, client_redirect_uri, state, code_challenge, code_challenge_method, code_verifier,
			 mcp_authorization_code, user_id, created_at, expires_at, flow_type, requested_scopes, granted_scopes, is_provisioning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fs.SessionID, fs.ClientID, fs.ClientRedirectURI, fs.State, fs.CodeChallenge, fs.CodeChallengeMethod, nullableString(fs.CodeVerifier),
		nullableString(fs.AuthorizationCode), nullableString(fs.UserID), now.Unix(), expiresAt.Unix(), string(fs.Flow),
		string(reqScopes), string(grantedScopes), fs.IsProvisioning)
	if err != nil {
		return bridgeerrors.NewStorageError("inserting flow session", err)
	}
	return nil
}

// GetFlowSession returns the session, deleting and returning nil if expired.
func (s *Store) GetFlowSession(ctx context.Context, sessionID string) (*FlowSession, error) {
	row := s.db.QueryRowContext(ctx, flowSessionSelect+` WHERE session_id = ?`, sessionID)
	return s.readFlowSessionRow(ctx, row)
}

// GetFlowSessionByCode looks a session up by its server-issued
// authorization code.
func (s *Store) GetFlowSessionByCode(ctx context.Context, code string) (*FlowSession, error) {
	row := s.db.QueryRowContext(ctx, flowSessionSelect+` WHERE mcp_authorization_code = ?`, code)
	return s.readFlowSessionRow(ctx, row)
}

const flowSessionSelect = `
	SELECT session_id, client_id, client_redirect_uri, state, code_challenge, code_challenge_method, code_verifier,
	       mcp_authorization_code, idp_access_token, idp_refresh_token, user_id, created_at, expires_at,
	       flow_type, requested_scopes, granted_scopes, is_provisioning
	FROM oauth_sessions`

func (s *Store) readFlowSessionRow(ctx context.Context, row *sql.Row) (*FlowSession, error) {
	var fs FlowSession
	var clientID, redirectURI, state, challenge, method, verifier, code, idpAccess, idpRefresh, userID sql.NullString
	var createdAt, expiresAt int64
	var flow, reqScopes, grantedScopes string
	var isProvisioning bool

	err := row.Scan(&fs.SessionID, &clientID, &redirectURI, &state, &challenge, &method, &verifier,
		&code, &idpAccess, &idpRefresh, &userID, &createdAt, &expiresAt, &flow, &reqScopes, &grantedScopes, &isProvisioning)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, bridgeerrors.NewStorageError("reading flow session", err)
	}
	fs.ClientID, fs.ClientRedirectURI, fs.State = clientID.String, redirectURI.String, state.String
	fs.CodeChallenge, fs.CodeChallengeMethod, fs.CodeVerifier = challenge.String, method.String, verifier.String
	fs.AuthorizationCode, fs.IDPAccessToken, fs.IDPRefreshToken, fs.UserID = code.String, idpAccess.String, idpRefresh.String, userID.String
	fs.CreatedAt = time.Unix(createdAt, 0)
	fs.ExpiresAt = time.Unix(expiresAt, 0)
	fs.Flow = FlowKind(flow)
	fs.IsProvisioning = isProvisioning
	_ = json.Unmarshal([]byte(reqScopes), &fs.RequestedScopes)
	_ = json.Unmarshal([]byte(grantedScopes), &fs.GrantedScopes)

	if time.Now().After(fs.ExpiresAt) {
		if _, err := s.DeleteFlowSession(ctx, fs.SessionID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &fs, nil
}

// UpdateFlowSession applies partial updates to a session by id. Nil
// pointers are treated as "no change".
func (s *Store) UpdateFlowSession(ctx context.Context, sessionID string, userID, idpAccessToken, idpRefreshToken, authCode *string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE oauth_sessions SET
			user_id = COALESCE(?, user_id),
			idp_access_token = COALESCE(?, idp_access_token),
			idp_refresh_token = COALESCE(?, idp_refresh_token),
			mcp_authorization_code = COALESCE(?, mcp_authorization_code)
		WHERE session_id = ?
	`, userID, idpAccessToken, idpRefreshToken, authCode, sessionID)
	if err != nil {
		return bridgeerrors.NewStorageError("updating flow session", err)
	}
	return nil
}

// DeleteFlowSession removes a session by id; returns false if absent.
func (s *Store) DeleteFlowSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return false, bridgeerrors.NewStorageError("deleting flow session", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, bridgeerrors.NewStorageError("counting deleted rows", err)
	}
	return n > 0, nil
}

// CleanupExpiredSessions deletes all sessions past their expiry and
// returns the number removed. Idempotent: a second call returns 0.
func (s *Store) CleanupExpiredSessions(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM oauth_sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, bridgeerrors.NewStorageError("cleaning up expired sessions", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, bridgeerrors.NewStorageError("counting cleaned up rows", err)
	}
	return int(n), nil
}

// --- webhooks ---------------------------------------------------------------

// PutWebhook registers a webhook id under a preset; re-registering the
// same id is the identity on row count.
func (s *Store) PutWebhook(ctx context.Context, webhookID, presetID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO registered_webhooks (webhook_id, preset_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(webhook_id) DO UPDATE SET preset_id = excluded.preset_id
	`, webhookID, presetID, float64(time.Now().UnixNano())/1e9)
	if err != nil {
		return bridgeerrors.NewStorageError("registering webhook", err)
	}
	return nil
}

// GetWebhooksByPreset lists all webhooks registered under presetID.
func (s *Store) GetWebhooksByPreset(ctx context.Context, presetID string) ([]WebhookRegistration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT webhook_id, preset_id, created_at FROM registered_webhooks WHERE preset_id = ?`, presetID)
	if err != nil {
		return nil, bridgeerrors.NewStorageError("listing webhooks by preset", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

// ListWebhooks returns every registered webhook.
func (s *Store) ListWebhooks(ctx context.Context) ([]WebhookRegistration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT webhook_id, preset_id, created_at FROM registered_webhooks`)
	if err != nil {
		return nil, bridgeerrors.NewStorageError("listing webhooks", err)
	}
	defer rows.Close()
	return scanWebhooks(rows)
}

func scanWebhooks(rows *sql.Rows) ([]WebhookRegistration, error) {
	var out []WebhookRegistration
	for rows.Next() {
		var w WebhookRegistration
		var createdAt float64
		if err := rows.Scan(&w.WebhookID, &w.PresetID, &createdAt); err != nil {
			return nil, bridgeerrors.NewStorageError("scanning webhook row", err)
		}
		w.CreatedAt = time.Unix(int64(createdAt), 0)
		out = append(out, w)
	}
	return out, rows.Err()
}

// DeleteWebhook removes a registration by id; returns false if absent.
func (s *Store) DeleteWebhook(ctx context.Context, webhookID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registered_webhooks WHERE webhook_id = ?`, webhookID)
	if err != nil {
		return false, bridgeerrors.NewStorageError("deleting webhook", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, bridgeerrors.NewStorageError("counting deleted rows", err)
	}
	return n > 0, nil
}

// ClearPreset removes every webhook under presetID and returns the count.
func (s *Store) ClearPreset(ctx context.Context, presetID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM registered_webhooks WHERE preset_id = ?`, presetID)
	if err != nil {
		return 0, bridgeerrors.NewStorageError("clearing preset webhooks", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, bridgeerrors.NewStorageError("counting cleared rows", err)
	}
	return int(n), nil
}

// --- app passwords -----------------------------------------------------------

// PutAppPassword upserts the encrypted upstream app password for userID.
func (s *Store) PutAppPassword(ctx context.Context, userID, password string) error {
	if s.box == nil {
		return bridgeerrors.NewConfigError("cannot write encrypted field: no encryption key configured", nil)
	}
	enc, err := s.box.SealString(password)
	if err != nil {
		return bridgeerrors.NewStorageError("sealing app password", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO app_passwords (user_id, encrypted_password, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET encrypted_password = excluded.encrypted_password, updated_at = excluded.updated_at
	`, userID, enc, now.Unix(), now.Unix())
	if err != nil {
		return bridgeerrors.NewStorageError("upserting app password", err)
	}
	return nil
}

// GetAppPassword decrypts and returns the stored app password, if any.
func (s *Store) GetAppPassword(ctx context.Context, userID string) (string, bool, error) {
	var enc []byte
	err := s.db.QueryRowContext(ctx, `SELECT encrypted_password FROM app_passwords WHERE user_id = ?`, userID).Scan(&enc)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, bridgeerrors.NewStorageError("reading app password", err)
	}
	plain, ok := s.box.OpenString(enc)
	return plain, ok, nil
}

// DeleteAppPassword revokes the stored app password for userID.
func (s *Store) DeleteAppPassword(ctx context.Context, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_passwords WHERE user_id = ?`, userID)
	if err != nil {
		return false, bridgeerrors.NewStorageError("deleting app password", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, bridgeerrors.NewStorageError("counting deleted rows", err)
	}
	return n > 0, nil
}

// --- audit ------------------------------------------------------------------

// Audit appends a row to the audit log, including hostname and current
// time.
func (s *Store) Audit(ctx context.Context, event, userID, resourceType, resourceID, authMethod string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (timestamp, event, user_id, resource_type, resource_id, auth_method, hostname)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, time.Now().Unix(), event, userID, resourceType, resourceID, authMethod, hostname())
	if err != nil {
		return bridgeerrors.NewStorageError("writing audit entry", err)
	}
	return nil
}

func nullableUnixPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
