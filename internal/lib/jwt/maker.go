// Package jwt выпускает и проверяет токены доступа учётных записей.
// В токене хранятся ID учётной записи, имя пользователя и роль.
package jwt

import (
	"time"
)

// Issuer значение claim iss для токенов платформы.
const Issuer = "entitlement-core"

// Maker выпускает и разбирает токены доступа.
type Maker interface {
	GenerateToken(accountID, username, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены HS256 секретным ключом.
type MakerImpl struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewJWTMaker создаёт MakerImpl с ключом подписи и временем жизни токена.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}
