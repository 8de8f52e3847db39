// Package jwt разбирает токены актора, выданные внешним сервисом авторизации.
//
// Ядро погашения не аутентифицирует пользователей: оно получает уже
// авторизованную личность актора из подписанного HS256-токена и лишь
// проверяет подпись и срок действия.
package jwt

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ActorClaims описывает данные актора, хранящиеся в токене.
type ActorClaims struct {
	ActorID              int    `json:"actor_id"` // Идентификатор пользователя
	Role                 string `json:"role"`     // Роль: customer или salon_owner
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Parser проверяет подпись токена актора и извлекает claims.
type Parser struct {
	secretKey string
}

// NewParser создаёт Parser с секретным ключом внешнего сервиса авторизации.
func NewParser(secretKey string) *Parser {
	return &Parser{secretKey: secretKey}
}

// ParseToken разбирает токен, проверяет подпись и срок действия,
// возвращает ActorClaims, если токен корректен.
func (p *Parser) ParseToken(tokenStr string) (*ActorClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &ActorClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(p.secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*ActorClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token claims", op)
	}
	if claims.ActorID <= 0 {
		return nil, fmt.Errorf("%s: missing actor id", op)
	}
	return claims, nil
}

// GenerateToken подписывает токен с заданными актором и ролью.
// Используется внешним сервисом авторизации и тестами.
func (p *Parser) GenerateToken(actorID int, role string, registered jwt.RegisteredClaims) (string, error) {
	claims := ActorClaims{
		ActorID:          actorID,
		Role:             role,
		RegisteredClaims: registered,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.secretKey))
}
