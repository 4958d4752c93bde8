/*
Package auth implements the credential side of the façade: password hashing and
verification, account creation, and identity token issuance.

The relay itself never touches this package; it only sees the numeric identity
the token carries.
*/
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"relaychat/internal/app/store"
	"relaychat/internal/pkg/auth/jwt"
)

// ErrInvalidCredential is returned when password verification fails for an
// existing account.
var ErrInvalidCredential = errors.New("auth: invalid credential")

// TokenIssuer issues signed, time-limited identity tokens.
type TokenIssuer interface {
	Issue(userID int64, username string) (string, error)
}

// JWTIssuer is the HS256-backed TokenIssuer used in production.
type JWTIssuer struct {
	secret string
}

// NewJWTIssuer builds a TokenIssuer signing with the given secret.
func NewJWTIssuer(secret string) *JWTIssuer {
	return &JWTIssuer{secret: secret}
}

// Issue signs a user identity token with the standard expiry.
func (i *JWTIssuer) Issue(userID int64, username string) (string, error) {
	payload := &jwt.Payload{
		UserID:   userID,
		Username: username,
	}

	return jwt.GenerateToken(payload, i.secret, jwt.UserIdentityExpiration)
}

// Service binds credential verification to the user store and token issuer.
type Service struct {
	users  store.UserStore
	tokens TokenIssuer
}

// NewService wires the auth service to its collaborators.
func NewService(users store.UserStore, tokens TokenIssuer) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
	}
}

// Register creates a new account and returns the stored user with a fresh
// identity token. A taken username surfaces as store.ErrDuplicateUser.
func (s *Service) Register(ctx context.Context, username, password string) (store.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, username, string(hash))
	if err != nil {
		return store.User{}, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return store.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

// Login verifies a username/password pair and returns the account with a fresh
// identity token. An unknown username surfaces as store.ErrNotFound; a failed
// verification as ErrInvalidCredential. No token is issued on failure.
func (s *Service) Login(ctx context.Context, username, password string) (store.User, string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return store.User{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, "", ErrInvalidCredential
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return store.User{}, "", fmt.Errorf("issue token: %w", err)
	}

	return user, token, nil
}

// ChangePassword verifies the current password and replaces the stored hash.
func (s *Service) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrInvalidCredential
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.users.UpdateUserPassword(ctx, user.ID, string(hash))
}
