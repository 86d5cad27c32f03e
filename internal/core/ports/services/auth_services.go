package services

import (
	"context"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
)

// AuthSvcFacade registers accounts and issues tokens. It is the source of the account
// identity the ledger operations act on.
type AuthSvcFacade interface {
	// Register creates an account funded with the default starting cash.
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.Account, error)

	// Login checks a username/password pair and issues tokens.
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)

	// RefreshToken exchanges a valid refresh token for a new access token.
	RefreshToken(ctx context.Context, req dto.RefreshTokenRequest) (*dto.LoginResponse, error)

	// LoginWithGoogle verifies a Google ID token, creating the account on first use.
	LoginWithGoogle(ctx context.Context, req dto.GoogleLoginRequest) (*dto.LoginResponse, error)

	// Logout revokes the account's refresh token. Access tokens already issued run until they expire.
	Logout(ctx context.Context, accountID string) error
}

// GoogleIDTokenValidator validates an ID token string from Google and returns the identity in it.
type GoogleIDTokenValidator interface {
	ValidateGoogleIDToken(ctx context.Context, idToken string) (*domain.GoogleUserInfo, error)
}
