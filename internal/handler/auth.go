package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/rovify/rovify-api/internal/config"
	"github.com/rovify/rovify-api/internal/model"
	"github.com/rovify/rovify-api/internal/monitoring"
	"github.com/rovify/rovify-api/internal/repository"
	"github.com/rovify/rovify-api/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints. Three
// credential kinds resolve to the same canonical identity: email and
// password, a Google OAuth code, or a wallet signature over a
// server-issued nonce. Each resolves to a user row and mints the
// same access/refresh token pair.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Nonces *repository.NonceRepo
	Google GoogleVerifier // nil when OAuth is not configured
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, n *repository.NonceRepo, g GoogleVerifier) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Nonces: n, Google: g}
}

// ----- DTOs -----

type registerReq struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName string  `json:"display_name"`
	Username    *string `json:"username"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type oauthReq struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}
type nonceReq struct {
	Address string `json:"address"`
}
type walletVerifyReq struct {
	Address   string  `json:"address"`
	Nonce     string  `json:"nonce"`
	Signature string  `json:"signature"`
	BaseName  *string `json:"base_name"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID            uint64  `json:"id"`
	Email         *string `json:"email,omitempty"`
	DisplayName   string  `json:"display_name"`
	AuthMethod    string  `json:"auth_method"`
	WalletAddress *string `json:"wallet_address,omitempty"`
	BaseName      *string `json:"base_name,omitempty"`
	ImageURL      *string `json:"image_url,omitempty"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issuePair mints an access/refresh pair for the user and stores the
// refresh hash. Shared by every credential kind.
func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.AuthMethod, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	monitoring.LoginSucceeded(u.AuthMethod)
	return authResp{
		User: userPart{
			ID:            u.ID,
			Email:         u.Email,
			DisplayName:   u.DisplayName,
			AuthMethod:    u.AuthMethod,
			WalletAddress: u.WalletAddress,
			BaseName:      u.BaseName,
			ImageURL:      u.ImageURL,
		},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a credentials user and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}
	local, ok := emailLocalPart(req.Email)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email address"})
	}
	display := strings.TrimSpace(req.DisplayName)
	if display == "" {
		display = local
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	uid, err := h.Users.CreateCredentials(ctx, req.Email, req.Password, display, req.Username, h.Cfg.BcryptCost)
	if err != nil {
		switch err {
		case repository.ErrEmailExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case repository.ErrUsernameExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies email/password credentials. Unknown email, missing
// password hash (OAuth/wallet account) and wrong password all produce
// the same 401 so callers cannot probe which emails exist.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			monitoring.LoginFailed(model.AuthMethodCredentials)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if u.PasswordHash == nil || !utils.VerifyPassword(*u.PasswordHash, req.Password) {
		monitoring.LoginFailed(model.AuthMethodCredentials)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	_ = h.Users.TouchLogin(ctx, u.ID, nil)

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// OAuthGoogle exchanges a Google authorization code for an identity.
// A new account is created for unseen emails. An existing Google
// account logs straight in. An existing account under a DIFFERENT
// auth method is never silently merged: the caller gets a 409 and
// must link identities explicitly through their signed-in profile.
func (h *AuthHandler) OAuthGoogle(c echo.Context) error {
	if h.Google == nil {
		return c.JSON(http.StatusNotImplemented, echo.Map{"error": "google sign-in is not configured"})
	}
	var req oauthReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Code) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	ident, err := h.Google.Exchange(ctx, req.Code, req.RedirectURI)
	if err != nil {
		monitoring.LoginFailed(model.AuthMethodGoogle)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "google sign-in failed"})
	}

	u, err := h.Users.GetByEmail(ctx, ident.Email)
	switch {
	case err == sql.ErrNoRows:
		uid, err := h.Users.CreateOAuth(ctx, ident.Email, ident.Name, ident.Picture)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		if u, err = h.Users.GetByID(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
		}
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	case u.AuthMethod != model.AuthMethodGoogle:
		monitoring.LoginFailed(model.AuthMethodGoogle)
		return c.JSON(http.StatusConflict, echo.Map{"error": "account exists with a different sign-in method"})
	}
	_ = h.Users.TouchLogin(ctx, u.ID, nil)

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// WalletNonce issues a fresh single-use challenge for an address and
// returns the exact message the wallet must sign. The nonce expires
// after a short TTL and is consumed on first use.
func (h *AuthHandler) WalletNonce(c echo.Context) error {
	var req nonceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	address, err := utils.NormalizeAddress(req.Address)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid wallet address"})
	}

	nonce, err := utils.RandomHex(16)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue nonce failed"})
	}
	exp := time.Now().UTC().Add(time.Duration(h.Cfg.WalletNonceTTLMin) * time.Minute)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Nonces.Create(ctx, nonce, address, exp); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save nonce failed"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"nonce":   nonce,
		"message": utils.WalletLoginMessage(address, nonce),
		"expires": exp,
	})
}

// WalletVerify logs a wallet in. The nonce is consumed before the
// signature check so that even a valid signature over a spent nonce
// is rejected; the signature must recover to the claimed address
// (case-insensitive) over the canonical login message.
func (h *AuthHandler) WalletVerify(c echo.Context) error {
	var req walletVerifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	address, err := utils.NormalizeAddress(req.Address)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid wallet address"})
	}
	if strings.TrimSpace(req.Nonce) == "" || strings.TrimSpace(req.Signature) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nonce and signature required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if err := h.Nonces.Consume(ctx, req.Nonce, address); err != nil {
		if err == repository.ErrNonceInvalid {
			monitoring.LoginFailed(model.AuthMethodWallet)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired nonce"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "nonce check failed"})
	}

	message := utils.WalletLoginMessage(address, req.Nonce)
	if err := utils.VerifyWalletSignature(message, req.Signature, address); err != nil {
		monitoring.LoginFailed(model.AuthMethodWallet)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "signature verification failed"})
	}

	u, err := h.Users.GetByWallet(ctx, address)
	switch {
	case err == sql.ErrNoRows:
		uid, err := h.Users.CreateWallet(ctx, address, req.BaseName)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
		if u, err = h.Users.GetByID(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
		}
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	default:
		_ = h.Users.TouchLogin(ctx, u.ID, req.BaseName)
	}

	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it, and issues a
// fresh pair (rotation).
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue tokens failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshAccess issues a new access token from a valid refresh token
// WITHOUT rotating the refresh token.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.AuthMethod, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes either the specific refresh token in the body, or
// every session of the bearer when only an access token is supplied.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	hasBearer := false
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		rawToken := strings.TrimPrefix(authHeader, "Bearer ")
		tok, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, echo.ErrUnauthorized
			}
			return []byte(h.Cfg.JWTSecret), nil
		})
		if err == nil && tok.Valid {
			if claims, ok := tok.Claims.(jwt.MapClaims); ok {
				if sub, ok := claims["sub"].(float64); ok {
					uid = uint64(sub)
					hasBearer = true
				}
			}
		}
	}

	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	if hasBearer && refreshToken == "" {
		if uid == 0 {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide Authorization header or refresh_token"})
}

// Me returns the authenticated identity projection.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": userPart{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		AuthMethod:    u.AuthMethod,
		WalletAddress: u.WalletAddress,
		BaseName:      u.BaseName,
		ImageURL:      u.ImageURL,
	}})
}
