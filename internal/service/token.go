package service

import (
	"errors"
	"strings"
	"time"

	"github.com/nftlevel-next/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid 令牌无效
var ErrTokenInvalid = errors.New("token invalid")

// MemberClaims 会员令牌声明
type MemberClaims struct {
	MemberID   uint   `json:"member_id"`
	MemberCode string `json:"member_code"`
	jwt.RegisteredClaims
}

// OperatorClaims 运维账号令牌声明
type OperatorClaims struct {
	OperatorID uint   `json:"operator_id"`
	Username   string `json:"username"`
	IsSuper    bool   `json:"is_super"`
	jwt.RegisteredClaims
}

// IssueMemberToken 签发会员令牌（外部账号系统与 enginectl 使用同一密钥）
func IssueMemberToken(cfg config.JWTConfig, memberID uint, memberCode string, ttl time.Duration, now time.Time) (string, error) {
	if memberID == 0 || strings.TrimSpace(cfg.SecretKey) == "" {
		return "", ErrInvalidInput
	}
	claims := MemberClaims{
		MemberID:         memberID,
		MemberCode:       memberCode,
		RegisteredClaims: registeredClaims(cfg.Issuer, ttl, now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
}

// IssueOperatorToken 签发运维账号令牌
func IssueOperatorToken(cfg config.JWTConfig, operatorID uint, username string, isSuper bool, ttl time.Duration, now time.Time) (string, error) {
	if operatorID == 0 || strings.TrimSpace(cfg.SecretKey) == "" {
		return "", ErrInvalidInput
	}
	claims := OperatorClaims{
		OperatorID:       operatorID,
		Username:         username,
		IsSuper:          isSuper,
		RegisteredClaims: registeredClaims(cfg.Issuer, ttl, now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.SecretKey))
}

// ParseMemberToken 校验会员令牌
func ParseMemberToken(cfg config.JWTConfig, tokenString string) (*MemberClaims, error) {
	claims := &MemberClaims{}
	if err := parseToken(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.MemberID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// ParseOperatorToken 校验运维账号令牌
func ParseOperatorToken(cfg config.JWTConfig, tokenString string) (*OperatorClaims, error) {
	claims := &OperatorClaims{}
	if err := parseToken(cfg, tokenString, claims); err != nil {
		return nil, err
	}
	if claims.OperatorID == 0 {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func parseToken(cfg config.JWTConfig, tokenString string, claims jwt.Claims) error {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return ErrTokenInvalid
	}
	options := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer := strings.TrimSpace(cfg.Issuer); issuer != "" {
		options = append(options, jwt.WithIssuer(issuer))
	}
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func registeredClaims(issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return jwt.RegisteredClaims{
		Issuer:    strings.TrimSpace(issuer),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}
