package authapp

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
	"time"
)

var (
	ErrAccessTokenInvalid = errors.New("invalid access token")
	ErrAccessTokenExpired = fmt.Errorf("%w: token expired", ErrAccessTokenInvalid)
)

// Authorizer hashes passwords and signs the short-lived access tokens that
// accompany a session.
type Authorizer struct {
	Cost           int
	Secret         string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration
}

func (a *Authorizer) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost())
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *Authorizer) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (a *Authorizer) NewSecret() string {
	var b [24]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("failed to generate session secret")
	}
	return hex.EncodeToString(b[:])
}

func (a *Authorizer) cost() int {
	if a.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return a.Cost
}

// Principal is who an access token speaks for.
type Principal struct {
	UserID    string
	SessionID string
}

func (a *Authorizer) IssueAccessToken(p Principal, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:        p.SessionID,
		Subject:   p.UserID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(a.AccessTokenTTL).Unix(),
	})
	return token.SignedString([]byte(a.Secret))
}

func (a *Authorizer) ParseAccessToken(accessToken string) (*Principal, error) {
	var claims jwt.StandardClaims
	_, err := jwt.ParseWithClaims(accessToken, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAccessTokenInvalid
		}
		return []byte(a.Secret), nil
	})

	if err != nil {
		var validationErr *jwt.ValidationError
		if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrAccessTokenExpired
		}
		return nil, ErrAccessTokenInvalid
	}

	if claims.Subject == "" || claims.Id == "" {
		return nil, ErrAccessTokenInvalid
	}

	return &Principal{UserID: claims.Subject, SessionID: claims.Id}, nil
}
