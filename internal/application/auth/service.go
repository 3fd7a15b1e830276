package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-auth-nosql/internal/domain"
	"github.com/go-auth-nosql/internal/pkg/id"
	pkgotp "github.com/go-auth-nosql/internal/pkg/otp"
	"golang.org/x/crypto/bcrypt"
)

// emailPattern mirrors the registration contract: word/dot/hyphen characters
// around the @, dot-delimited domain, trailing alphanumeric label.
var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

const minPasswordLen = 6

const fieldPasswordHash = "password_hash"

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest carries the credential pair. The email field doubles as a
// username: it is matched against either unique column.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token string
	User  *domain.PublicUser
}

type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*domain.PublicUser, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type otpStore interface {
	Put(ctx context.Context, o *domain.OTP) error
	FindActive(ctx context.Context, userID, code string) (*domain.OTP, error)
	ConsumeAndSetPassword(ctx context.Context, otpID, userID, passwordHash string) error
}

type mailer interface {
	SendOTP(to, subject, code string) error
}

type tokenIssuer interface {
	Sign(userID string) (string, error)
}

type service struct {
	userRepo userStore
	otpRepo  otpStore
	mailer   mailer
	tokens   tokenIssuer
}

type ServiceDeps struct {
	UserRepo userStore
	OTPRepo  otpStore
	Mailer   mailer
	Tokens   tokenIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{
		userRepo: deps.UserRepo,
		otpRepo:  deps.OTPRepo,
		mailer:   deps.Mailer,
		tokens:   deps.Tokens,
	}
}

// Signup validates in a fixed order (username presence, email syntax, password
// strength, email conflict, username conflict) so client-facing messages stay
// stable. The stored record only ever holds the bcrypt hash.
func (s *service) Signup(ctx context.Context, req SignupRequest) (*domain.PublicUser, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("Username is required: %w", domain.ErrBadRequest)
	}
	if !emailPattern.MatchString(req.Email) {
		return nil, fmt.Errorf("Invalid email: %w", domain.ErrBadRequest)
	}
	if len(req.Password) < minPasswordLen {
		return nil, fmt.Errorf("Weak password: %w", domain.ErrBadRequest)
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("Email already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("Username already exists: %w", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Put(ctx, u); err != nil {
		return nil, err
	}
	return u.Public(), nil
}

// Login matches the identifier against email first, then username. Unknown
// identifier and wrong password collapse into the same error so callers can't
// probe which accounts exist.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if req.Email == "" {
		return nil, fmt.Errorf("Email or username is required: %w", domain.ErrBadRequest)
	}
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		u, err = s.userRepo.GetByUsername(ctx, req.Email)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Invalid credentials: %w", domain.ErrUnauthorized)
		}
	}
	// A store outage is an internal failure, not a credential mismatch.
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("Invalid credentials: %w", domain.ErrUnauthorized)
	}
	token, err := s.tokens.Sign(u.UserID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, User: u.Public()}, nil
}

// ForgotPassword issues a fresh 10-minute code on every call. Delivery failure
// is logged, not surfaced: the success response must not reveal whether the
// inbox was reachable, and the code stays valid for a resend path.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("User not found: %w", domain.ErrNotFound)
		}
		return err
	}

	code, err := pkgotp.Generate()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	o := &domain.OTP{
		OTPID:     id.New(),
		UserID:    u.UserID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.OTPValidity).Unix(),
	}
	if err := s.otpRepo.Put(ctx, o); err != nil {
		return err
	}

	if err := s.mailer.SendOTP(u.Email, "Your Password Reset OTP", code); err != nil {
		slog.Warn("failed to send password reset OTP", "user_id", u.UserID, "err", err)
	}
	return nil
}

// ResetPassword consumes an unused, unexpired code and swaps the password hash
// in one store transaction. Wrong, unknown and already-consumed codes all read
// as "Invalid OTP"; expiry is only reported once a matching unused record exists.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("User not found: %w", domain.ErrNotFound)
		}
		return err
	}
	o, err := s.otpRepo.FindActive(ctx, u.UserID, req.OTP)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("Invalid OTP: %w", domain.ErrBadRequest)
		}
		return err
	}
	if time.Now().UTC().Unix() > o.ExpiresAt {
		return fmt.Errorf("OTP expired: %w", domain.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.otpRepo.ConsumeAndSetPassword(ctx, o.OTPID, u.UserID, string(hash)); err != nil {
		// A concurrent reset won the race between FindActive and the transaction.
		if errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("Invalid OTP: %w", domain.ErrBadRequest)
		}
		return err
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)); err != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.Update(ctx, userID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) CurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	u, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}
