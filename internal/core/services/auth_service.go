package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/apperrors"
	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/portfolio_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/SscSPs/portfolio_ledger/internal/platform/config"
	"github.com/SscSPs/portfolio_ledger/internal/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/api/idtoken"
)

// authService implements the AuthSvcFacade. It owns account creation and
// issues access/refresh token pairs.
type authService struct {
	BaseService
	accountRepo     portsrepo.AccountRepositoryFacade
	googleValidator portssvc.GoogleIDTokenValidator

	jwtSecret     string
	jwtIssuer     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	startingCash  decimal.Decimal
	now           func() time.Time
}

// AuthOption is a functional option for configuring the auth service
type AuthOption func(*authService)

// WithGoogleValidator enables Google sign-in.
func WithGoogleValidator(v portssvc.GoogleIDTokenValidator) AuthOption {
	return func(s *authService) {
		s.googleValidator = v
	}
}

// WithAuthClock overrides the time source used for audit fields and token expiry.
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) {
		s.now = now
	}
}

// NewAuthService creates a new auth service from the application config.
func NewAuthService(cfg *config.Config, accountRepo portsrepo.AccountRepositoryFacade, options ...AuthOption) portssvc.AuthSvcFacade {
	svc := &authService{
		accountRepo:   accountRepo,
		jwtSecret:     cfg.JWTSecret,
		jwtIssuer:     cfg.JWTIssuer,
		accessExpiry:  cfg.JWTExpiryDuration,
		refreshExpiry: cfg.RefreshTokenExpiryDuration,
		startingCash:  cfg.DefaultStartingCash,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AuthSvcFacade = (*authService)(nil)

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (*domain.Account, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", apperrors.ErrValidation)
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		s.LogError(ctx, err, "Failed to hash password")
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to hash password", err)
	}

	account := s.newAccount(username)
	account.PasswordHash = hash
	if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("%w: username %q is taken", apperrors.ErrDuplicate, username)
		}
		s.LogError(ctx, err, "Failed to save account", slog.String("username", username))
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	s.LogInfo(ctx, "Account registered",
		slog.String("account_id", account.AccountID),
		slog.String("opening_balance", account.OpeningBalance.String()))
	return &account, nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	account, err := s.accountRepo.FindAccountByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if account.PasswordHash == "" || !utils.CheckPasswordHash(req.Password, account.PasswordHash) {
		s.LogDebug(ctx, "Password login rejected", slog.String("account_id", account.AccountID))
		return nil, fmt.Errorf("%w: invalid username or password", apperrors.ErrUnauthorized)
	}
	return s.issueTokens(ctx, account)
}

func (s *authService) RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (*dto.LoginResponse, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to retrieve account for refresh token validation: %w", err)
	}

	if account.RefreshTokenHash == "" || account.RefreshTokenExpiryTime == nil {
		return nil, apperrors.ErrUnauthorized
	}
	if s.now().After(*account.RefreshTokenExpiryTime) {
		return nil, apperrors.ErrRefreshTokenExpired
	}
	if !utils.CompareRefreshTokenHash(req.RefreshToken, account.RefreshTokenHash) {
		s.LogWarn(ctx, "Refresh token mismatch", slog.String("account_id", account.AccountID))
		return nil, apperrors.ErrUnauthorized
	}

	// Rotate: the presented token is replaced and can't be used again.
	return s.issueTokens(ctx, account)
}

func (s *authService) LoginWithGoogle(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error) {
	if s.googleValidator == nil {
		return nil, fmt.Errorf("%w: google sign-in is not configured", apperrors.ErrUnauthorized)
	}
	info, err := s.googleValidator.ValidateGoogleIDToken(ctx, req.IDToken)
	if err != nil {
		s.LogWarn(ctx, "Google ID token rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUnauthorized, err)
	}

	account, err := s.accountRepo.FindAccountByGoogleSubject(ctx, info.Subject)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		account, err = s.createGoogleAccount(ctx, info)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to look up google account: %w", err)
	}
	return s.issueTokens(ctx, account)
}

func (s *authService) Logout(ctx context.Context, accountID string) error {
	if err := s.accountRepo.UpdateRefreshToken(ctx, accountID, "", nil, s.now()); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrUnauthorized
		}
		s.LogError(ctx, err, "Failed to revoke refresh token", slog.String("account_id", accountID))
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	s.LogInfo(ctx, "Account logged out", slog.String("account_id", accountID))
	return nil
}

func (s *authService) createGoogleAccount(ctx context.Context, info *domain.GoogleUserInfo) (*domain.Account, error) {
	candidates := []string{"google-" + info.Subject}
	if email := strings.TrimSpace(info.Email); email != "" {
		candidates = append([]string{email}, candidates...)
	}

	for _, username := range candidates {
		account := s.newAccount(username)
		account.GoogleSubject = info.Subject
		err := s.accountRepo.SaveAccount(ctx, account)
		if err == nil {
			s.LogInfo(ctx, "Account created from google sign-in", slog.String("account_id", account.AccountID))
			return &account, nil
		}
		if !errors.Is(err, apperrors.ErrDuplicate) {
			return nil, fmt.Errorf("failed to create google account: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: no free username for google subject %s", apperrors.ErrDuplicate, info.Subject)
}

func (s *authService) newAccount(username string) domain.Account {
	now := s.now()
	return domain.Account{
		AccountID:      uuid.NewString(),
		Username:       username,
		CashBalance:    s.startingCash,
		OpeningBalance: s.startingCash,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}
}

// issueTokens signs a new access token and stores the hash of a fresh refresh token.
func (s *authService) issueTokens(ctx context.Context, account *domain.Account) (*dto.LoginResponse, error) {
	now := s.now()
	accessToken, err := utils.GenerateJWT(account.AccountID, s.jwtSecret, s.accessExpiry, s.jwtIssuer)
	if err != nil {
		s.LogError(ctx, err, "Failed to generate access token", slog.String("account_id", account.AccountID))
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to generate access token", err)
	}

	rawRefreshToken, err := utils.GenerateSecureRandomString(32)
	if err != nil {
		return nil, apperrors.NewAppError(http.StatusInternalServerError, "failed to generate refresh token", err)
	}
	refreshExpiry := now.Add(s.refreshExpiry)
	if err := s.accountRepo.UpdateRefreshToken(ctx, account.AccountID, utils.HashRefreshToken(rawRefreshToken), &refreshExpiry, now); err != nil {
		s.LogError(ctx, err, "Failed to store refresh token", slog.String("account_id", account.AccountID))
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.LoginResponse{
		AccountID:    account.AccountID,
		Token:        accessToken,
		ExpiresAt:    now.Add(s.accessExpiry),
		RefreshToken: rawRefreshToken,
	}, nil
}

// googleIDTokenValidator checks Google-signed ID tokens against the configured client ID.
type googleIDTokenValidator struct {
	clientID string
}

// NewGoogleIDTokenValidator returns nil when no client ID is configured.
func NewGoogleIDTokenValidator(clientID string) portssvc.GoogleIDTokenValidator {
	if clientID == "" {
		return nil
	}
	return &googleIDTokenValidator{clientID: clientID}
}

func (v *googleIDTokenValidator) ValidateGoogleIDToken(ctx context.Context, idTokenString string) (*domain.GoogleUserInfo, error) {
	payload, err := idtoken.Validate(ctx, idTokenString, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("google ID token validation failed: %w", err)
	}
	info := &domain.GoogleUserInfo{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		info.Email = email
	}
	if name, ok := payload.Claims["name"].(string); ok {
		info.Name = name
	}
	return info, nil
}
