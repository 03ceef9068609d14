package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token 签名者
const tokenIssuer = "arena-server"

var ErrInvalidToken = errors.New("无效的会话 token")

// Claims 会话 Token 携带的客户端槽位与关卡实例
type Claims struct {
	Slot       int32  `json:"slot"`
	SpawnCount int32  `json:"spawn_count"`
	Name       string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateSessionToken 生成会话 Token，断线重连时用于找回原槽位
func GenerateSessionToken(key []byte, ttl time.Duration, sessionID string, slot, spawnCount int32, name string) (string, error) {
	now := time.Now()
	claims := Claims{
		Slot:       slot,
		SpawnCount: spawnCount,
		Name:       name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("client-%d", slot),
			ID:        sessionID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(key)
}

// VerifySessionToken 验证并解析 Token
func VerifySessionToken(key []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithIssuer(tokenIssuer))

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
