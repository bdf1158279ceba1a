package services

import (
	"bptracker/config"
	"bptracker/internal/logger"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid session token")

const sessionIssuer = "bptracker"

type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    logger.Logger
}

func NewSessionService(config config.Config) *SessionService {
	ttl := time.Duration(config.SecuritySessionHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}

	return &SessionService{
		secret: []byte(config.SecurityJwtSecret),
		ttl:    ttl,
		now:    time.Now,
		log:    logger.New("SessionService"),
	}
}

func (s *SessionService) TTL() time.Duration {
	return s.ttl
}

// Issue signs an HS256 token whose subject is the user id.
func (s *SessionService) Issue(userID string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, s.log.Function("Issue").Error("user id is required")
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    sessionIssuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, s.log.Function("Issue").Err("failed to sign session token", err)
	}

	return signed, expiresAt, nil
}

// Parse returns the user id of a valid, unexpired token.
func (s *SessionService) Parse(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return claims.Subject, nil
}
