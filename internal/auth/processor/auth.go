package processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fanforge-server/internal/email"
	"fanforge-server/internal/observability"
	"fanforge-server/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthProcessor struct {
	store        store.Store
	emailService *email.EmailService
	jwtSecret    string
	logger       *observability.Logger
}

func New(store store.Store, emailService *email.EmailService, jwtSecret string, logger *observability.Logger) AuthProcessor {
	return AuthProcessor{
		store:        store,
		emailService: emailService,
		jwtSecret:    jwtSecret,
		logger:       logger,
	}
}

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidJWTToken    = errors.New("invalid jwt token")
	ErrParseJWTToken      = errors.New("failed to parse jwt token")
)

type SignedUpUser struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
}

type BaseClaims struct {
	ExpirationTime *jwt.NumericDate `json:"exp"`
	IssuedAt       *jwt.NumericDate `json:"iat"`
	NotBefore      *jwt.NumericDate `json:"nbf"`
	Issuer         string           `json:"iss"`
	Subject        string           `json:"sub"`
	Audience       jwt.ClaimStrings `json:"aud"`
}

func (b *BaseClaims) GetExpirationTime() (*jwt.NumericDate, error) { return b.ExpirationTime, nil }
func (b *BaseClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return b.IssuedAt, nil }
func (b *BaseClaims) GetNotBefore() (*jwt.NumericDate, error)      { return b.NotBefore, nil }
func (b *BaseClaims) GetIssuer() (string, error)                   { return b.Issuer, nil }
func (b *BaseClaims) GetSubject() (string, error)                  { return b.Subject, nil }
func (b *BaseClaims) GetAudience() (jwt.ClaimStrings, error)       { return b.Audience, nil }

func (p *AuthProcessor) Signup(
	ctx context.Context, firstName string, lastName string, emailAddress string, password string) (SignedUpUser, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "email", Value: emailAddress})

	exists, err := p.store.CheckIfEmailExists(ctx, emailAddress)
	if err != nil {
		p.logger.Error(ctx, "failed to check if email exists", err)
		return SignedUpUser{}, err
	}
	if exists {
		return SignedUpUser{}, ErrEmailAlreadyExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		p.logger.Error(ctx, "failed to hash password", err)
		return SignedUpUser{}, err
	}

	user, err := p.store.CreateUserOnEmailSignup(ctx, emailAddress, firstName, lastName, string(hashedPassword))
	if err != nil {
		p.logger.Error(ctx, "failed to create user", err)
		return SignedUpUser{}, err
	}

	if p.emailService != nil {
		if err := p.emailService.SendWelcomeEmail(ctx, user.Email, user.FirstName); err != nil {
			p.logger.InfoWithError(ctx, "failed to send welcome email", err)
		}
	}

	return SignedUpUser{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}, nil
}

func (p *AuthProcessor) Login(ctx context.Context, emailAddress string, password string) (string, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "email", Value: emailAddress})

	user, err := p.store.GetUserByEmail(ctx, emailAddress)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		p.logger.Error(ctx, "failed to get user by email", err)
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := p.generateJWTToken(user)
	if err != nil {
		p.logger.Error(ctx, "failed to generate jwt token", err)
		return "", err
	}
	return token, nil
}

func (p *AuthProcessor) generateJWTToken(user store.User) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"iss": "fanforge-server",
		"aud": "fanforge-server",
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(p.jwtSecret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func (p *AuthProcessor) ValidateJWTToken(ctx context.Context, token string) (BaseClaims, error) {
	var baseClaims BaseClaims
	t, err := jwt.ParseWithClaims(token, &baseClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(p.jwtSecret), nil
	})
	if err != nil {
		return BaseClaims{}, ErrParseJWTToken
	}
	if !t.Valid {
		return BaseClaims{}, ErrInvalidJWTToken
	}

	claims, ok := t.Claims.(*BaseClaims)
	if !ok {
		return BaseClaims{}, ErrParseJWTToken
	}
	return *claims, nil
}

func (p *AuthProcessor) GetUserByID(ctx context.Context, userID uuid.UUID) (User, error) {
	user, err := p.store.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			p.logger.Error(ctx, "failed to get user by id", err)
		}
		return User{}, err
	}
	return User{
		ID:        user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}, nil
}
