package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
)

// DefaultTokenTTL token 預設有效期限
const DefaultTokenTTL = 24 * time.Hour

type Claims struct {
	UserID   uint   `json:"user_id"`
	UserType string `json:"user_type"`
	jwt.StandardClaims
}

// TokenManager 負責簽發與驗證 JWT
// token 的簽發屬於外部認證服務，這裡的 GenerateToken 供工具與測試使用
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// GenerateToken 生成一個新的 JWT token
func (m *TokenManager) GenerateToken(userID uint, userType string) (string, error) {
	nowTime := time.Now()
	expireTime := nowTime.Add(m.ttl)

	claims := Claims{
		UserID:   userID,
		UserType: userType,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expireTime.Unix(),
			IssuedAt:  nowTime.Unix(),
		},
	}

	tokenClaims := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenClaims.SignedString(m.secret)
}

// ParseToken 解析和驗證 JWT token，只接受 HMAC 簽章
func (m *TokenManager) ParseToken(token string) (*Claims, error) {
	tokenClaims, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := tokenClaims.Claims.(*Claims); ok && tokenClaims.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
