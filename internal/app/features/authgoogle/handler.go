// internal/app/features/authgoogle/handler.go
package authgoogle

// Mobile clients run the Google consent flow themselves and post the
// resulting authorization code here. The server exchanges it, fetches
// the Google profile, upserts the account keyed by the Google subject,
// and returns a bearer access token plus a rotating refresh token.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tokenstore "github.com/dalemusser/gatherhub/internal/app/store/tokens"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/authtoken"
	"github.com/dalemusser/gatherhub/internal/app/system/authz"
	"github.com/dalemusser/gatherhub/internal/app/system/limits"
	"github.com/dalemusser/gatherhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler handles Google OAuth authentication.
type Handler struct {
	Users  *userstore.Store
	Tokens *tokenstore.Store
	Access *authtoken.Manager
	Log    *zap.Logger
	ErrLog *apierr.ErrorLogger

	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(
	users *userstore.Store,
	tokens *tokenstore.Store,
	access *authtoken.Manager,
	clientID, clientSecret, baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Users:        users,
		Tokens:       tokens,
		Access:       access,
		Log:          logger,
		ErrLog:       apierr.NewErrorLogger(logger),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

type loginRequest struct {
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri,omitempty"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	RefreshToken string    `json:"refresh_token"`
	UserID       string    `json:"user_id"`
	FullName     string    `json:"full_name"`
}

// HandleLogin handles POST /auth/google.
//
// Request:  { "code": "...", "redirect_uri": "..." }
// Response: { "access_token": "...", "expires_at": "...",
//             "refresh_token": "...", "user_id": "...", "full_name": "..." }
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		apierr.Write(w, http.StatusServiceUnavailable, "internal", "google sign-in is not configured")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}
	if req.Code == "" {
		apierr.BadRequest(w, "code is required")
		return
	}

	cfg := h.oauth2Config()
	if req.RedirectURI != "" {
		cfg.RedirectURL = req.RedirectURI
	}

	token, err := cfg.Exchange(r.Context(), req.Code)
	if err != nil {
		h.Log.Warn("Google code exchange failed", zap.Error(err))
		apierr.Unauthorized(w, "google sign-in failed")
		return
	}

	googleUser, err := fetchGoogleUserInfo(r.Context(), token)
	if err != nil {
		h.ErrLog.ServerError(w, "fetch google user info", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.UpsertFromIdentity(ctx, googleUser.ID, googleUser.Email, googleUser.Name, googleUser.Picture)
	if err != nil {
		h.ErrLog.ServerError(w, "upsert user from google identity", err)
		return
	}
	if user.Status == "disabled" {
		h.Log.Info("login refused for disabled account", zap.String("user_id", user.ID.Hex()))
		apierr.Forbidden(w, "account is disabled")
		return
	}

	h.respondWithTokens(w, ctx, user.ID, user.FullName)

	h.Log.Info("user logged in via Google",
		zap.String("user_id", user.ID.Hex()),
		zap.String("email", user.Email))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRefresh handles POST /auth/refresh. The presented refresh token
// is consumed and a new pair is returned.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		apierr.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	userID, err := h.Tokens.Redeem(ctx, req.RefreshToken)
	if err != nil {
		if err == tokenstore.ErrInvalidToken {
			apierr.Unauthorized(w, "invalid refresh token")
			return
		}
		h.ErrLog.ServerError(w, "redeem refresh token", err)
		return
	}

	user, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		h.ErrLog.StoreError(w, "load user for refresh", "account no longer exists", err)
		return
	}

	h.respondWithTokens(w, ctx, user.ID, user.FullName)
}

// HandleLogout handles POST /auth/logout: every refresh token of the
// caller is revoked. Outstanding access tokens expire on their own.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserCtx(r)
	if !ok {
		apierr.Unauthorized(w, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	revoked, err := h.Tokens.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		h.ErrLog.ServerError(w, "revoke refresh tokens", err)
		return
	}

	h.Log.Info("user logged out",
		zap.String("user_id", user.ID.Hex()),
		zap.Int64("tokens_revoked", revoked))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"revoked": revoked})
}

func (h *Handler) respondWithTokens(w http.ResponseWriter, ctx context.Context, userID primitive.ObjectID, fullName string) {
	access, expiresAt, err := h.Access.Issue(userID, fullName)
	if err != nil {
		h.ErrLog.ServerError(w, "issue access token", err)
		return
	}
	refresh, err := h.Tokens.Issue(ctx, userID)
	if err != nil {
		h.ErrLog.ServerError(w, "issue refresh token", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken:  access,
		ExpiresAt:    expiresAt,
		RefreshToken: refresh,
		UserID:       userID.Hex(),
		FullName:     fullName,
	})
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	return &info, nil
}
