package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rovify/rovify-api/internal/model"
	"github.com/rovify/rovify-api/internal/utils"
)

// UserRepo provides persistence for user accounts across all three
// auth methods. Lookups normalize their external identifier (email
// lower-cased, wallet address lower-cased) before hitting the store.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, username, display_name, image_url, bio,
	auth_method, wallet_address, base_name, email_verified, is_active,
	last_login_at, created_at, updated_at`

// scanUser reads one user row in userColumns order.
func scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Username, &u.DisplayName,
		&u.ImageURL, &u.Bio, &u.AuthMethod, &u.WalletAddress, &u.BaseName,
		&u.EmailVerified, &u.IsActive, &lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

// CreateCredentials inserts a password-based user and returns its ID.
func (r *UserRepo) CreateCredentials(ctx context.Context, email, password, displayName string, username *string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, username, display_name, auth_method)
		 VALUES (?,?,?,?,?)`,
		email, hash, username, displayName, model.AuthMethodCredentials)
	if err != nil {
		if isDuplicateKey(err) {
			if strings.Contains(err.Error(), "username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateOAuth inserts a Google-backed user. Email is the external key
// and email_verified is set because the provider attested it.
func (r *UserRepo) CreateOAuth(ctx context.Context, email, displayName string, imageURL *string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, display_name, image_url, auth_method, email_verified)
		 VALUES (?,?,?,?,TRUE)`,
		email, displayName, imageURL, model.AuthMethodGoogle)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// CreateWallet inserts a wallet-backed user. The display name is
// synthesized from the address suffix when the wallet has no resolved
// base name.
func (r *UserRepo) CreateWallet(ctx context.Context, address string, baseName *string) (uint64, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	display := "rov-" + address[len(address)-6:]
	if baseName != nil && *baseName != "" {
		display = *baseName
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (wallet_address, base_name, display_name, auth_method)
		 VALUES (?,?,?,?)`,
		address, baseName, display, model.AuthMethodWallet)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrWalletExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByWallet fetches a user by lower-cased wallet address.
func (r *UserRepo) GetByWallet(ctx context.Context, address string) (model.User, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE wallet_address=? LIMIT 1", address))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// TouchLogin records a successful login. For wallet logins the base
// name may be refreshed at the same time.
func (r *UserRepo) TouchLogin(ctx context.Context, id uint64, baseName *string) error {
	if baseName != nil {
		_, err := r.DB.ExecContext(ctx,
			"UPDATE users SET last_login_at=NOW(), base_name=? WHERE id=?", *baseName, id)
		return err
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=NOW() WHERE id=?", id)
	return err
}

// ProfilePatch carries the profile fields a user may edit. Nil fields
// are left untouched.
type ProfilePatch struct {
	DisplayName *string
	Username    *string
	Bio         *string
	ImageURL    *string
	Preferences []byte
}

// UpdateProfile applies a partial profile patch for the given user.
// Username uniqueness is enforced against OTHER user ids first, so a
// user re-submitting their own current username succeeds.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, p ProfilePatch) error {
	if p.Username != nil {
		var takenBy uint64
		err := r.DB.QueryRowContext(ctx,
			"SELECT id FROM users WHERE username=? AND id<>? LIMIT 1", *p.Username, id).Scan(&takenBy)
		switch {
		case err == nil:
			return ErrUsernameExists
		case err != sql.ErrNoRows:
			return err
		}
	}

	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	if p.DisplayName != nil {
		set = append(set, "display_name=?")
		args = append(args, *p.DisplayName)
	}
	if p.Username != nil {
		set = append(set, "username=?")
		args = append(args, *p.Username)
	}
	if p.Bio != nil {
		set = append(set, "bio=?")
		args = append(args, *p.Bio)
	}
	if p.ImageURL != nil {
		set = append(set, "image_url=?")
		args = append(args, *p.ImageURL)
	}
	if p.Preferences != nil {
		set = append(set, "preferences=?")
		args = append(args, p.Preferences)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrUsernameExists
		}
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports zero affected rows for no-op updates as well;
		// confirm the user actually exists before calling it missing.
		var exists uint64
		if e := r.DB.QueryRowContext(ctx, "SELECT id FROM users WHERE id=? LIMIT 1", id).Scan(&exists); e == sql.ErrNoRows {
			return ErrNotFound
		}
	}
	return nil
}

// AppendCreatedEvent atomically appends an event id to the user's
// created_events JSON array.
func (r *UserRepo) AppendCreatedEvent(ctx context.Context, userID, eventID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users
		 SET created_events = JSON_ARRAY_APPEND(COALESCE(created_events, JSON_ARRAY()), '$', CAST(? AS UNSIGNED))
		 WHERE id=?`, eventID, userID)
	return err
}

// AppendAttendedEventTx atomically appends an event id to the user's
// attended_events JSON array inside the purchase transaction.
func (r *UserRepo) AppendAttendedEventTx(ctx context.Context, tx *sql.Tx, userID, eventID uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET attended_events = JSON_ARRAY_APPEND(COALESCE(attended_events, JSON_ARRAY()), '$', CAST(? AS UNSIGNED))
		 WHERE id=?`, eventID, userID)
	return err
}

// PublicProfile is the projection of a user exposed on public profile
// endpoints. Email and wallet address are intentionally absent.
type PublicProfile struct {
	ID          uint64    `json:"id"`
	Username    *string   `json:"username,omitempty"`
	DisplayName string    `json:"display_name"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Bio         *string   `json:"bio,omitempty"`
	BaseName    *string   `json:"base_name,omitempty"`
	MemberSince time.Time `json:"member_since"`
}

// GetPublicProfile fetches the public projection for a user id.
func (r *UserRepo) GetPublicProfile(ctx context.Context, id uint64) (PublicProfile, error) {
	var p PublicProfile
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, username, display_name, image_url, bio, base_name, created_at
		 FROM users WHERE id=? AND is_active=TRUE LIMIT 1`, id).
		Scan(&p.ID, &p.Username, &p.DisplayName, &p.ImageURL, &p.Bio, &p.BaseName, &p.MemberSince)
	if err == sql.ErrNoRows {
		return PublicProfile{}, ErrNotFound
	}
	return p, err
}
