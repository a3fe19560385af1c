package model

import "time"

// User represents an application user record as stored in the
// `users` table. A user is reachable through exactly one external
// identifier per auth method: email for credentials and Google
// sign-in, wallet address (stored lower-case) for wallet sign-in.
// The JSON-array columns hold ids of related events and are only
// ever mutated through atomic JSON_ARRAY_APPEND updates.
//
// Fields:
//  ID             – primary key identifier of the user.
//  Email          – unique email address (nullable for wallet-only users).
//  PasswordHash   – bcrypt hashed password (nullable for OAuth/wallet users).
//  Username       – unique public handle (nullable until chosen).
//  DisplayName    – human-readable name shown on profiles.
//  ImageURL       – avatar URL.
//  Bio            – free-form profile text.
//  AuthMethod     – how the account was created: credentials, google or wallet.
//  WalletAddress  – unique lower-cased wallet address (nullable).
//  BaseName       – optional human-readable name resolved for the wallet.
//  EmailVerified  – whether the email has been confirmed (true for OAuth).
//  Preferences    – raw JSON preference blob.
//  CreatedEvents  – JSON array of event ids the user organises.
//  AttendedEvents – JSON array of event ids the user holds tickets for.
//  SavedEvents    – JSON array of event ids the user bookmarked.
//  IsActive       – whether the account is active.
//  LastLoginAt    – timestamp of the most recent successful login.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type User struct {
	ID             uint64     // users.id
	Email          *string    // users.email (nullable, unique)
	PasswordHash   *string    // users.password_hash (nullable)
	Username       *string    // users.username (nullable, unique)
	DisplayName    string     // users.display_name
	ImageURL       *string    // users.image_url (nullable)
	Bio            *string    // users.bio (nullable)
	AuthMethod     string     // users.auth_method
	WalletAddress  *string    // users.wallet_address (nullable, unique, lower-case)
	BaseName       *string    // users.base_name (nullable)
	EmailVerified  bool       // users.email_verified
	Preferences    []byte     // users.preferences (raw JSON)
	CreatedEvents  []byte     // users.created_events (JSON array of ids)
	AttendedEvents []byte     // users.attended_events (JSON array of ids)
	SavedEvents    []byte     // users.saved_events (JSON array of ids)
	IsActive       bool       // users.is_active
	LastLoginAt    *time.Time // users.last_login_at (nullable)
	CreatedAt      time.Time  // users.created_at
	UpdatedAt      time.Time  // users.updated_at
}

// Auth method values stored in users.auth_method.
const (
	AuthMethodCredentials = "credentials"
	AuthMethodGoogle      = "google"
	AuthMethodWallet      = "wallet"
)

// RefreshToken models an entry in the `refresh_tokens` table. Each
// refresh token belongs to a user and carries expiry and revocation
// metadata. The plain token is never stored; only its SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// WalletNonce models a single-use login challenge in the
// `wallet_nonces` table. A nonce is bound to one wallet address,
// expires after a short TTL and is marked used on the first
// successful signature verification so the same signed message can
// never be replayed.
//
// Fields:
//  ID        – primary key identifier.
//  Nonce     – unique random challenge value embedded in the signed message.
//  Address   – lower-cased wallet address the nonce was issued for.
//  ExpiresAt – expiration timestamp of the challenge.
//  UsedAt    – when the nonce was consumed (null while unused).
//  CreatedAt – timestamp of issuance.
type WalletNonce struct {
	ID        uint64     // wallet_nonces.id
	Nonce     string     // wallet_nonces.nonce (unique)
	Address   string     // wallet_nonces.address (lower-case)
	ExpiresAt time.Time  // wallet_nonces.expires_at
	UsedAt    *time.Time // wallet_nonces.used_at (nullable)
	CreatedAt time.Time  // wallet_nonces.created_at
}
