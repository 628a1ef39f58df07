// Package auth implements the capability check for admin requests and the
// short-lived action tokens that guard every mutation against forgery.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	nanoid "github.com/matoous/go-nanoid/v2"

	"github.com/topwebdesignco/advanced-schema-manager/internal/apperr"
)

// Actions guarded by a token.
const ActionAdd = "add_schema"

// EditAction is the token action for updating record id.
func EditAction(id int64) string { return "edit_schema_" + strconv.FormatInt(id, 10) }

// DeleteAction is the token action for deleting record id.
func DeleteAction(id int64) string { return "delete_schema_" + strconv.FormatInt(id, 10) }

// DefaultNonceTTL is how long an issued token stays valid.
const DefaultNonceTTL = 12 * time.Hour

const nonceIDLength = 16

type nonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// Nonces issues and verifies HS256 action tokens.
type Nonces struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewNonces returns a Nonces signing with secret. A zero ttl uses DefaultNonceTTL.
func NewNonces(secret string, ttl time.Duration) *Nonces {
	if ttl <= 0 {
		ttl = DefaultNonceTTL
	}
	return &Nonces{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a token for action and its expiry.
func (n *Nonces) Issue(action string) (string, time.Time, error) {
	if action == "" {
		return "", time.Time{}, errors.New("auth: empty action")
	}
	jti, err := nanoid.New(nonceIDLength)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: token id: %w", err)
	}
	now := n.now()
	exp := now.Add(n.ttl)
	claims := nonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(n.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign: %w", err)
	}
	return signed, exp, nil
}

// Verify checks that token is a valid, unexpired token for action. Any
// failure wraps apperr.ErrInvalidToken.
func (n *Nonces) Verify(token, action string) error {
	if token == "" {
		return fmt.Errorf("auth: missing token: %w", apperr.ErrInvalidToken)
	}
	var claims nonceClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return n.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(n.now),
	)
	if err != nil {
		return fmt.Errorf("auth: %v: %w", err, apperr.ErrInvalidToken)
	}
	if claims.Action != action {
		return fmt.Errorf("auth: token for %q used for %q: %w", claims.Action, action, apperr.ErrInvalidToken)
	}
	return nil
}
