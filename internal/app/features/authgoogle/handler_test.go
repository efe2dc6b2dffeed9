package authgoogle_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/gatherhub/internal/app/features/authgoogle"
	tokenstore "github.com/dalemusser/gatherhub/internal/app/store/tokens"
	userstore "github.com/dalemusser/gatherhub/internal/app/store/users"
	"github.com/dalemusser/gatherhub/internal/app/system/authtoken"
	"github.com/dalemusser/gatherhub/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*authgoogle.Handler, *tokenstore.Store, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	access, err := authtoken.NewManager("test-secret-0123456789abcdef0123456789abcdef", 15*time.Minute)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	tokens := tokenstore.New(db, time.Hour)
	h := authgoogle.NewHandler(userstore.New(db), tokens, access, "", "", "http://localhost:3000", logger)
	return h, tokens, testutil.NewFixtures(t, db)
}

func TestHandleLogin_Unconfigured(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(t, "POST", "/auth/google", map[string]string{"code": "abc"})
	rec := httptest.NewRecorder()

	h.HandleLogin(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRefresh_RotatesToken(t *testing.T) {
	h, tokens, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Pat Doe", "pat@example.com")
	refresh, err := tokens.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	req := testutil.NewJSONRequest(t, "POST", "/auth/refresh", map[string]string{"refresh_token": refresh})
	rec := httptest.NewRecorder()

	h.HandleRefresh(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("token pair missing from response")
	}
	if resp.RefreshToken == refresh {
		t.Error("refresh token was not rotated")
	}
	if resp.UserID != user.ID.Hex() {
		t.Errorf("user_id = %q", resp.UserID)
	}

	// The old token was consumed on redemption.
	req = testutil.NewJSONRequest(t, "POST", "/auth/refresh", map[string]string{"refresh_token": refresh})
	rec = httptest.NewRecorder()
	h.HandleRefresh(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed refresh status = %d, want 401", rec.Code)
	}
}

func TestHandleRefresh_InvalidToken(t *testing.T) {
	h, _, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(t, "POST", "/auth/refresh", map[string]string{"refresh_token": "not-a-token"})
	rec := httptest.NewRecorder()

	h.HandleRefresh(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleLogout_RevokesAllTokens(t *testing.T) {
	h, tokens, fx := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Pat Doe", "pat@example.com")
	if _, err := tokens.Issue(ctx, user.ID); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Issue(ctx, user.ID); err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest("POST", "/auth/logout", nil)
	req = testutil.WithUser(req, user.ID, user.FullName)
	rec := httptest.NewRecorder()

	h.HandleLogout(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Revoked int64 `json:"revoked"`
	}
	testutil.DecodeJSON(t, rec, &resp)
	if resp.Revoked != 2 {
		t.Errorf("revoked = %d, want 2", resp.Revoked)
	}
}
