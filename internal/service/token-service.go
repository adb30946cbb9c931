package service

import (
	"errors"
	"fmt"
	"proposal-access-service/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "proposal-access-service"

// TokenService signs and verifies grant tokens. It is pure: authority comes
// from the stored grant, the token only proves the claims were issued here.
type TokenService struct {
	secretKey []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secretKey: []byte(secret),
	}
}

func (s *TokenService) GenerateGrantToken(grant *models.Grant) (string, error) {
	claims := models.GrantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        grant.GrantID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(grant.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(grant.ExpiresAt),
		},
		ResourceID:     grant.ResourceID,
		RecipientEmail: grant.Recipient.Email,
		Permissions:    grant.Permissions,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("error generate token string: %w", err)
	}
	return tokenString, nil
}

// VerifyGrantToken checks the signature and shape of a presented token.
// An authentic token past its exp claim comes back as ErrGrantExpired so
// the boundary can tell the recipient to ask for a new link; every other
// failure is ErrInvalidToken.
func (s *TokenService) VerifyGrantToken(tokenString string) (*models.GrantClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&models.GrantClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		},
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrGrantExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*models.GrantClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.GrantID() == "" || claims.ResourceID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
