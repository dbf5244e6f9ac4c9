// Package user handles registration and login. Passwords are stored as
// bcrypt hashes; logins are exchanged for HS256 JWTs carrying the user id.
package user

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dvloznov/finance-ledger/internal/domain"
)

// Store is the persistence surface the user service needs. GetByEmail
// returns (nil, nil) when no user with that email exists.
type Store interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Service implements registration and login.
type Service struct {
	store     Store
	jwtSecret []byte
	tokenTTL  time.Duration
	log       zerolog.Logger
}

// NewService creates a user service.
func NewService(store Store, jwtSecret []byte, tokenTTL time.Duration, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		log:       log,
	}
}

// RegisterInput is the validated payload for registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new user with a bcrypt-hashed password. Email addresses
// are unique; a duplicate registration fails as InvalidOperation.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	existing, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if existing != nil {
		return nil, domain.InvalidOperationf("email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.Internal(err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.store.Create(ctx, user)
	if err != nil {
		return nil, domain.Internal(err)
	}
	return created, nil
}

// Login verifies credentials and returns a signed token plus the user.
// Unknown email and wrong password produce the same NotFound failure so the
// response does not reveal which one was wrong.
func (s *Service) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, domain.Internal(err)
	}
	if user == nil {
		return "", nil, domain.NotFoundf("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.NotFoundf("invalid email or password")
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return "", nil, domain.Internal(err)
	}
	return token, user, nil
}

// issueToken signs an HS256 JWT with the user id as subject.
func (s *Service) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
