package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-auth-nosql/internal/application/auth"
	"github.com/go-auth-nosql/internal/domain"
	jwtinfra "github.com/go-auth-nosql/internal/infrastructure/jwt"
	"github.com/go-auth-nosql/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reqWithClaims(req *http.Request, userID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ClaimsKey, &jwtinfra.Claims{UserID: userID})
	return req.WithContext(ctx)
}

// stubAuthService returns canned results per operation.
type stubAuthService struct {
	signupErr   error
	loginResult *auth.LoginResult
	loginErr    error
	forgotErr   error
	resetErr    error
}

func (s *stubAuthService) Signup(context.Context, auth.SignupRequest) (*domain.PublicUser, error) {
	if s.signupErr != nil {
		return nil, s.signupErr
	}
	return &domain.PublicUser{UserID: "u1", Username: "alice", Email: "alice@x.com"}, nil
}
func (s *stubAuthService) Login(context.Context, auth.LoginRequest) (*auth.LoginResult, error) {
	return s.loginResult, s.loginErr
}
func (s *stubAuthService) ForgotPassword(context.Context, string) error { return s.forgotErr }
func (s *stubAuthService) ResetPassword(context.Context, auth.ResetPasswordRequest) error {
	return s.resetErr
}
func (s *stubAuthService) ChangePassword(context.Context, string, string, string) error { return nil }
func (s *stubAuthService) CurrentUser(context.Context, string) (*domain.PublicUser, error) {
	return &domain.PublicUser{UserID: "u1", Username: "alice", Email: "alice@x.com"}, nil
}

func doJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	return m
}

func TestSignup_Created(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	rr := doJSON(t, h.Signup, `{"username":"alice","email":"alice@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "User created successfully", decodeBody(t, rr)["message"])
}

func TestSignup_ConflictSurfacesAs400(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		signupErr: fmt.Errorf("Username already exists: %w", domain.ErrConflict),
	})
	rr := doJSON(t, h.Signup, `{"username":"alice","email":"alice2@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Username already exists", decodeBody(t, rr)["error"])
}

func TestSignup_BadBody(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	rr := doJSON(t, h.Signup, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_Success(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		loginResult: &auth.LoginResult{
			Token: "signed-token",
			User:  &domain.PublicUser{UserID: "u1", Username: "alice", Email: "alice@x.com"},
		},
	})
	rr := doJSON(t, h.Login, `{"email":"alice@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "Login successful", body["message"])
	assert.Equal(t, "signed-token", body["token"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	// The password hash must never appear in the payload.
	_, leaked := user["password_hash"]
	assert.False(t, leaked)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		loginErr: fmt.Errorf("Invalid credentials: %w", domain.ErrUnauthorized),
	})
	rr := doJSON(t, h.Login, `{"email":"ghost","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, rr)["error"])
}

func TestLogin_StoreOutageSurfacesAs500(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		loginErr: errors.New("dynamo: connection refused"),
	})
	rr := doJSON(t, h.Login, `{"email":"alice@x.com","password":"secret1"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	// The raw store error never reaches the client.
	assert.Equal(t, "internal server error", decodeBody(t, rr)["error"])
}

func TestForgotPassword_OK(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	rr := doJSON(t, h.ForgotPassword, `{"email":"alice@x.com"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OTP sent to email", decodeBody(t, rr)["message"])
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		forgotErr: fmt.Errorf("User not found: %w", domain.ErrNotFound),
	})
	rr := doJSON(t, h.ForgotPassword, `{"email":"ghost@x.com"}`)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "User not found", decodeBody(t, rr)["error"])
}

func TestResetPassword_OK(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	rr := doJSON(t, h.ResetPassword, `{"email":"alice@x.com","otp":"123456","password":"newpass1"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Password reset successful", decodeBody(t, rr)["message"])
}

func TestResetPassword_InvalidOTP(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		resetErr: fmt.Errorf("Invalid OTP: %w", domain.ErrBadRequest),
	})
	rr := doJSON(t, h.ResetPassword, `{"email":"alice@x.com","otp":"000000","password":"newpass1"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid OTP", decodeBody(t, rr)["error"])
}

func TestResetPassword_Expired(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{
		resetErr: fmt.Errorf("OTP expired: %w", domain.ErrBadRequest),
	})
	rr := doJSON(t, h.ResetPassword, `{"email":"alice@x.com","otp":"123456","password":"newpass1"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "OTP expired", decodeBody(t, rr)["error"])
}

func TestMe_Unauthenticated(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	h.Me(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestChangePassword_ShortNewPassword(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	// Claims are injected by middleware in production; fake them here.
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"current_password":"old","new_password":"abc"}`))
	req = reqWithClaims(req, "u1")
	rr := httptest.NewRecorder()
	h.ChangePassword(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
