// Package middleware содержит HTTP middleware сервиса учёта долгов.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const principalKey contextKey = "principal"

// Role роль владельца токена.
type Role string

const (
	RoleRetailer Role = "retailer"
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// ErrInvalidToken возвращается для неподписанного, просроченного или повреждённого токена.
var ErrInvalidToken = errors.New("invalid token")

// Principal аутентифицированный владелец запроса. Для магазина заполнен RetailerID,
// для покупателя Phone, для администратора Username.
type Principal struct {
	Role       Role
	RetailerID int64
	Phone      string
	Username   string
}

type claims struct {
	Role       Role   `json:"role"`
	RetailerID int64  `json:"rid,omitempty"`
	Phone      string `json:"phone,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer выпускает и проверяет JWT, подписанные HS256.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer создаёт издателя токенов. При пустом секрете генерируется
// случайный ключ, и токены перестают быть действительными после перезапуска.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("default-secret-key")
		}
	}

	return &TokenIssuer{
		secret: key,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue выпускает токен и возвращает момент его истечения.
func (t *TokenIssuer) Issue(p Principal) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)

	subject := p.Username
	switch p.Role {
	case RoleRetailer:
		subject = fmt.Sprint(p.RetailerID)
	case RoleCustomer:
		subject = p.Phone
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role:       p.Role,
		RetailerID: p.RetailerID,
		Phone:      p.Phone,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Parse проверяет подпись и срок действия токена.
func (t *TokenIssuer) Parse(raw string) (*Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p := &Principal{Role: c.Role, RetailerID: c.RetailerID, Phone: c.Phone}
	switch c.Role {
	case RoleRetailer:
		if c.RetailerID == 0 {
			return nil, ErrInvalidToken
		}
	case RoleCustomer:
		if c.Phone == "" {
			return nil, ErrInvalidToken
		}
	case RoleAdmin:
		p.Username = c.Subject
	default:
		return nil, ErrInvalidToken
	}
	return p, nil
}

// AuthMiddleware проверяет bearer-токен запроса.
type AuthMiddleware struct {
	issuer *TokenIssuer
}

// NewAuthMiddleware создаёт middleware поверх издателя токенов.
func NewAuthMiddleware(issuer *TokenIssuer) *AuthMiddleware {
	return &AuthMiddleware{issuer: issuer}
}

// Require пропускает запрос, только если токен действителен и его роль входит в roles.
func (a *AuthMiddleware) Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			p, err := a.issuer.Parse(raw)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			if !slices.Contains(roles, p.Role) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// WithPrincipal кладёт владельца запроса в контекст.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext извлекает владельца запроса из контекста.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
