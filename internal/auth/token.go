package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/storefront-system/internal/model"
)

// TokenKind различает короткоживущий access-токен и долгоживущий refresh-токен.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// refreshTokenTTL — фиксированный срок жизни refresh-токена.
const refreshTokenTTL = 7 * 24 * time.Hour

// ErrTokenInvalid возвращается при неверной подписи, повреждённом токене
// или отсутствии обязательных утверждений.
var (
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired возвращается, если срок действия токена истёк.
	ErrTokenExpired = errors.New("token has expired")
)

// Claims — утверждения подписанного токена: субъект, роль и вид токена.
type Claims struct {
	jwt.RegisteredClaims
	Role string    `json:"role"`
	Kind TokenKind `json:"kind"`
}

// Identity — результат успешной проверки токена.
type Identity struct {
	UserID int64
	Role   model.Role
	Kind   TokenKind
}

// TokenManager выпускает и проверяет подписанные HS256-токены.
type TokenManager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewTokenManager создаёт менеджер токенов с указанным секретом
// и сроком жизни access-токена.
func NewTokenManager(secret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:    []byte(secret),
		accessTTL: accessTTL,
	}
}

// IssueAccess выпускает access-токен для пользователя с указанной ролью.
func (m *TokenManager) IssueAccess(userID int64, role model.Role) (string, error) {
	return m.issue(userID, role, TokenKindAccess, m.accessTTL)
}

// IssueRefresh выпускает refresh-токен. Срок жизни фиксирован политикой.
func (m *TokenManager) IssueRefresh(userID int64, role model.Role) (string, error) {
	return m.issue(userID, role, TokenKindRefresh, refreshTokenTTL)
}

func (m *TokenManager) issue(userID int64, role model.Role, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
		Kind: kind,
	})

	return token.SignedString(m.secret)
}

// Verify проверяет подпись и срок действия токена и возвращает личность
// его владельца. Просроченный токен даёт ErrTokenExpired, любая другая
// проблема — ErrTokenInvalid.
func (m *TokenManager) Verify(tokenString string) (*Identity, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" || claims.Role == "" {
		return nil, ErrTokenInvalid
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	role := model.Role(claims.Role)
	if !role.Valid() {
		return nil, ErrTokenInvalid
	}

	switch claims.Kind {
	case TokenKindAccess, TokenKindRefresh:
	default:
		return nil, ErrTokenInvalid
	}

	return &Identity{
		UserID: userID,
		Role:   role,
		Kind:   claims.Kind,
	}, nil
}
