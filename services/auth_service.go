package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/ttleague/ladder-system/models"
	"github.com/ttleague/ladder-system/repositories"
)

const sessionLifetime = 30 * time.Minute

// AuthService implements the club's shared-password login: one password per
// realm, no per-user accounts. A successful login issues a session token
// carrying the realm as role.
type AuthService struct {
	authRepo  repositories.AuthRepository
	clock     *Clock
	audit     Audit
	jwtSecret []byte
}

func NewAuthService(authRepo repositories.AuthRepository, clock *Clock, audit Audit, jwtSecret []byte) *AuthService {
	return &AuthService{
		authRepo:  authRepo,
		clock:     clock,
		audit:     audit,
		jwtSecret: jwtSecret,
	}
}

// Login compares the password against every stored realm hash and issues a
// token for the first matching realm.
func (s *AuthService) Login(ctx context.Context, password, remoteAddr string) (string, models.AuthRealm, error) {
	auths, err := s.authRepo.List(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to load authentication realms: %w", err)
	}

	for _, auth := range auths {
		if err := bcrypt.CompareHashAndPassword([]byte(auth.PasswordHash), []byte(password)); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				continue
			}
			return "", "", fmt.Errorf("failed to compare password hash: %w", err)
		}

		token, err := s.issueToken(auth.Name)
		if err != nil {
			return "", "", err
		}
		s.audit.Event(ctx, models.LevelAuth, "authenticate",
			fmt.Sprintf("SUCCESS: authenticated %s to %s realm", remoteAddr, auth.Name))
		return token, auth.Name, nil
	}

	s.audit.Event(ctx, models.LevelAuth, "authenticate",
		fmt.Sprintf("DENIED: password from %s does not match any registered realm", remoteAddr))
	return "", "", ErrInvalidCredentials
}

func (s *AuthService) issueToken(realm models.AuthRealm) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"role": string(realm),
		"iat":  now.Unix(),
		"exp":  now.Add(sessionLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Bootstrap seeds the viewer and trainer realm passwords when none exist yet.
func (s *AuthService) Bootstrap(ctx context.Context, viewerPassword, trainerPassword string) error {
	count, err := s.authRepo.Count(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to count authentication realms: %w", err)
	}
	if count > 0 {
		return nil
	}
	if viewerPassword == "" || trainerPassword == "" {
		s.audit.Event(ctx, models.LevelWarning, "authenticate",
			"no realm passwords configured, skipping bootstrap; logins will fail until set")
		return nil
	}

	realms := []struct {
		name     models.AuthRealm
		password string
	}{
		{models.RealmViewer, viewerPassword},
		{models.RealmTrainer, trainerPassword},
	}
	for _, realm := range realms {
		hash, err := bcrypt.GenerateFromPassword([]byte(realm.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash %s password: %w", realm.name, err)
		}
		auth := &models.Authentication{Name: realm.name, PasswordHash: string(hash)}
		if err := s.authRepo.Create(ctx, nil, auth); err != nil {
			return fmt.Errorf("failed to create %s realm: %w", realm.name, err)
		}
	}
	s.audit.Event(ctx, models.LevelInfo, "authenticate", "seeded viewer and trainer realm passwords")
	return nil
}
