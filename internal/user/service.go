package user

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/MikeMC777/mercado-ecom/internal/auth"
	"github.com/MikeMC777/mercado-ecom/internal/identity"
)

// Service is the identity directory backed by the users table.
type Service struct {
	repo   Repository
	issuer *auth.Issuer
}

func NewService(repo Repository, issuer *auth.Issuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

func toIdentity(u *User) identity.User {
	return identity.User{ID: u.ID, Email: u.Email, Role: u.Role, SupermarketID: u.SupermarketID}
}

func (s *Service) GetUser(ctx context.Context, id string) (identity.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return identity.User{}, identity.ErrNotFound
	}
	if err != nil {
		log.Printf("[users] get id=%s err=%v", id, err)
		return identity.User{}, err
	}
	return toIdentity(u), nil
}

// Authenticate answers ErrInvalidCredentials for both unknown emails and bad
// passwords.
func (s *Service) Authenticate(ctx context.Context, email, password string) (identity.Session, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return identity.Session{}, identity.ErrInvalidCredentials
	}
	if err != nil {
		log.Printf("[users] auth lookup err=%v", err)
		return identity.Session{}, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return identity.Session{}, identity.ErrInvalidCredentials
	}
	tok, exp, err := s.issuer.Issue(auth.Principal{
		UserID: u.ID, Email: u.Email, Role: u.Role, SupermarketID: u.SupermarketID,
	})
	if err != nil {
		return identity.Session{}, err
	}
	log.Printf("[users] session issued user=%s role=%s", u.ID, u.Role)
	return identity.Session{Token: tok, ExpiresAt: exp, User: toIdentity(u)}, nil
}

// Seed creates a user unless the email is taken. Used to bootstrap a fresh
// database from the command line.
func (s *Service) Seed(ctx context.Context, email, password, role, supermarketID string) (*User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if role == "" {
		role = auth.RoleCustomer
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}
	u := &User{ID: uuid.NewString(), Email: normalizeEmail(email), PasswordHash: hash, Role: role, SupermarketID: supermarketID}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
