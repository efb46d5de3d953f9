package auth

import (
	"context"
	"fmt"

	"chat-relay/internal/models"
	"chat-relay/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// Service verifies bearer credentials issued by the external token service
// and resolves them to user identities. It never issues credentials itself.
type Service struct {
	secret []byte
	users  store.UserRepository
}

func NewService(secret []byte, users store.UserRepository) *Service {
	return &Service{
		secret: secret,
		users:  users,
	}
}

type Claims struct {
	UserID   int
	Username string
}

func (s *Service) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, &models.AuthError{Reason: "invalid token"}
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, &models.AuthError{Reason: "invalid token"}
	}

	userIDFloat, ok := (*claims)["user_id"].(float64)
	if !ok {
		return nil, &models.AuthError{Reason: "invalid user ID in token"}
	}

	username, _ := (*claims)["username"].(string)
	return &Claims{UserID: int(userIDFloat), Username: username}, nil
}

// UserFromToken verifies the credential and loads the full identity.
func (s *Service) UserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.VerifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, &models.AuthError{Reason: "unknown user"}
	}

	return user, nil
}
