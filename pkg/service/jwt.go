package service

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "transport-request-system/pkg/errors"
)

// ActorClaims - полезная нагрузка токена: имя пользователя, которое попадёт в историю заявки.
type ActorClaims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// MaxNameLength - имя длиннее не поместится в историю заявки.
const MaxNameLength = 100

type JWTService interface {
	GenerateToken(name string) (string, error)
	ValidateToken(tokenString string) (*ActorClaims, error)
}

type jwtService struct {
	secretKey      []byte
	accessTokenExp time.Duration
	now            func() time.Time
}

func NewJWTService(secretKey string, accessTokenExp time.Duration) JWTService {
	return &jwtService{
		secretKey:      []byte(secretKey),
		accessTokenExp: accessTokenExp,
		now:            time.Now,
	}
}

func (s *jwtService) GenerateToken(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("имя пользователя для токена не задано")
	}
	if n := utf8.RuneCountInString(name); n > MaxNameLength {
		return "", fmt.Errorf("имя пользователя длиннее %d символов: %d", MaxNameLength, n)
	}
	now := s.now()
	claims := &ActorClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenExp)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(s.secretKey)
}

func (s *jwtService) ValidateToken(tokenString string) (*ActorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ActorClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidSigningMethod
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid || claims.Name == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
