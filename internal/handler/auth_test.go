package handler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"github.com/rovify/rovify-api/internal/config"
	"github.com/rovify/rovify-api/internal/model"
	"github.com/rovify/rovify-api/internal/repository"
	"github.com/rovify/rovify-api/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		JWTSecret:         "test-secret",
		AccessTTLMin:      15,
		RefreshTTLDays:    7,
		BcryptCost:        4,
		WalletNonceTTLMin: 5,
	}
}

type fakeGoogle struct {
	ident GoogleIdentity
	err   error
}

func (f *fakeGoogle) Exchange(ctx context.Context, code, redirectURI string) (GoogleIdentity, error) {
	return f.ident, f.err
}

func newAuthHandler(t *testing.T, g GoogleVerifier) (*AuthHandler, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return NewAuthHandler(
		testConfig(),
		repository.NewUserRepo(db),
		repository.NewTokenRepo(db),
		repository.NewNonceRepo(db),
		g,
	), mock
}

func TestRegister_PasswordTooShort(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/register",
		`{"email":"a@b.co","password":"short"}`, 0)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_RejectsMalformedEmail(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	// No display_name, so the handler would derive one from the email.
	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/register",
		`{"email":"not-an-email","password":"longenough"}`, 0)

	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email")
}

func TestEmailLocalPart(t *testing.T) {
	cases := []struct {
		email string
		local string
		ok    bool
	}{
		{"alex@example.com", "alex", true},
		{"a@b.co", "a", true},
		{"not-an-email", "", false},
		{"@example.com", "", false},
		{"alex@", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		local, ok := emailLocalPart(tc.email)
		assert.Equal(t, tc.ok, ok, tc.email)
		assert.Equal(t, tc.local, local, tc.email)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t, nil)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("ghost@b.co").
		WillReturnRows(sqlmock.NewRows(userTestColumns))

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"Ghost@B.co","password":"whatever1"}`, 0)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t, nil)

	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("a@b.co").
		WillReturnRows(userRow(model.User{
			ID: 1, Email: ptr("a@b.co"), PasswordHash: &hash,
			DisplayName: "Alex", AuthMethod: model.AuthMethodCredentials,
		}))

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"a@b.co","password":"battery-staple"}`, 0)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin_WalletAccountHasNoPassword(t *testing.T) {
	h, mock := newAuthHandler(t, nil)

	// Accounts created through wallet login have no hash; probing them
	// with a password must look identical to a wrong password.
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("a@b.co").
		WillReturnRows(userRow(model.User{
			ID: 1, Email: ptr("a@b.co"),
			DisplayName: "Alex", AuthMethod: model.AuthMethodWallet,
		}))

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/login",
		`{"email":"a@b.co","password":"anything-goes"}`, 0)

	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOAuthGoogle_NotConfigured(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/oauth/google",
		`{"code":"abc"}`, 0)

	require.NoError(t, h.OAuthGoogle(c))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestOAuthGoogle_DifferentMethodConflicts(t *testing.T) {
	g := &fakeGoogle{ident: GoogleIdentity{Email: "a@b.co", Name: "Alex"}}
	h, mock := newAuthHandler(t, g)

	// Same email already registered with a password: no silent merge.
	mock.ExpectQuery("SELECT .+ FROM users WHERE email=").
		WithArgs("a@b.co").
		WillReturnRows(userRow(model.User{
			ID: 1, Email: ptr("a@b.co"), PasswordHash: ptr("$2a$04$x"),
			DisplayName: "Alex", AuthMethod: model.AuthMethodCredentials,
		}))

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/oauth/google",
		`{"code":"abc"}`, 0)

	require.NoError(t, h.OAuthGoogle(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletNonce_InvalidAddress(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/wallet/nonce",
		`{"address":"nope"}`, 0)

	require.NoError(t, h.WalletNonce(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletVerify_SpentNonce(t *testing.T) {
	h, mock := newAuthHandler(t, nil)

	mock.ExpectExec("UPDATE wallet_nonces SET used_at=NOW()").
		WillReturnResult(sqlmock.NewResult(0, 0))

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/wallet/verify",
		`{"address":"0xabcd000000000000000000000000000000001234","nonce":"n1","signature":"0xdead"}`, 0)

	require.NoError(t, h.WalletVerify(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWalletVerify_NewWalletLogsIn(t *testing.T) {
	h, mock := newAuthHandler(t, nil)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	raw := priv.PubKey().SerializeUncompressed()
	kh := sha3.NewLegacyKeccak256()
	kh.Write(raw[1:])
	addr := "0x" + hex.EncodeToString(kh.Sum(nil)[12:])

	nonce := "a1b2c3d4e5f60718"
	message := utils.WalletLoginMessage(addr, nonce)
	dh := sha3.NewLegacyKeccak256()
	fmt.Fprintf(dh, "\x19Ethereum Signed Message:\n%d%s", len(message), message)
	compact := ecdsa.SignCompact(priv, dh.Sum(nil), false)
	sig := make([]byte, 65)
	copy(sig[:64], compact[1:])
	sig[64] = compact[0]

	mock.ExpectExec("UPDATE wallet_nonces SET used_at=NOW()").
		WithArgs(nonce, addr).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT .+ FROM users WHERE wallet_address=").
		WithArgs(addr).
		WillReturnRows(sqlmock.NewRows(userTestColumns))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WithArgs(uint64(9)).
		WillReturnRows(userRow(model.User{
			ID: 9, DisplayName: "rov-" + addr[len(addr)-6:],
			AuthMethod: model.AuthMethodWallet, WalletAddress: &addr,
		}))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body, _ := json.Marshal(map[string]string{
		"address":   addr,
		"nonce":     nonce,
		"signature": "0x" + hex.EncodeToString(sig),
	})
	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/wallet/verify", string(body), 0)

	require.NoError(t, h.WalletVerify(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"auth_method":"wallet"`)
	assert.Contains(t, rec.Body.String(), addr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_InvalidToken(t *testing.T) {
	h, mock := newAuthHandler(t, nil)

	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}))

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/refresh",
		`{"refresh_token":"bogus"}`, 0)

	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogout_NoCredentials(t *testing.T) {
	h, _ := newAuthHandler(t, nil)

	c, rec := newTestContext(t, http.MethodPost, "/v1/auth/logout", `{}`, 0)

	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
