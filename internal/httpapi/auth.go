package httpapi

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"allinconnect/backoffice/internal/domain"
)

// AuthManager issues and checks the console's own access tokens. The
// operator's identity comes from the upstream login; the console never
// stores credentials itself.
type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
}

type consoleClaims struct {
	jwtlib.RegisteredClaims
	Name string `json:"name,omitempty"`
}

func NewAuthManager(secret string, tokenTTL time.Duration) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
	}
}

// Sign mints a console token for a logged-in operator.
func (a *AuthManager) Sign(email, name string) (token string, expiresAt time.Time, err error) {
	expiresAt = time.Now().UTC().Add(a.tokenTTL)
	claims := consoleClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "allinconnect-backoffice",
		},
		Name: name,
	}
	token, err = jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &consoleClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Email: sub, Name: claims.Name}, nil
}
