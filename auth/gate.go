// Package auth is the guest/admin role gate. A shared passphrase elevates a
// session to admin. It is a convenience gate for a small group of friends,
// not an identity system: anyone who knows the passphrase is an admin.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"dinoevent/errs"
	"dinoevent/models"
)

const DefaultTTL = 30 * 24 * time.Hour

// Claims is the session token payload.
type Claims struct {
	ViewerID string      `json:"viewerId"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

type Gate struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewGate accepts either a bcrypt hash of the passphrase or the plain
// passphrase, which is hashed once at startup.
func NewGate(passphrase, passphraseHash string, secret []byte, ttl time.Duration) (*Gate, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: empty JWT secret")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var hash []byte
	switch {
	case passphraseHash != "":
		if _, err := bcrypt.Cost([]byte(passphraseHash)); err != nil {
			return nil, fmt.Errorf("auth: invalid passphrase hash: %w", err)
		}
		hash = []byte(passphraseHash)
	case passphrase != "":
		h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("auth: hash passphrase: %w", err)
		}
		hash = h
	default:
		return nil, errors.New("auth: no admin passphrase configured")
	}

	return &Gate{hash: hash, secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for sess.
func (g *Gate) Issue(sess models.Session) (string, error) {
	now := g.now()
	claims := &Claims{
		ViewerID: sess.ViewerID,
		Role:     sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.ViewerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// Parse validates a token and returns its session.
func (g *Gate) Parse(tokenString string) (models.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return models.Session{}, fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Role != models.RoleGuest && claims.Role != models.RoleAdmin {
		return models.Session{}, fmt.Errorf("invalid role %q", claims.Role)
	}
	return models.Session{ViewerID: claims.ViewerID, Role: claims.Role}, nil
}

// Guest returns a guest session for the same viewer, minting a viewer id
// when the caller has none yet.
func (g *Gate) Guest(current models.Session) models.Session {
	viewer := current.ViewerID
	if viewer == "" {
		viewer = uuid.NewString()
	}
	return models.Session{ViewerID: viewer, Role: models.RoleGuest}
}

// Elevate promotes current to admin when passphrase matches.
func (g *Gate) Elevate(current models.Session, passphrase string) (models.Session, error) {
	if passphrase == "" {
		return current, errs.Validation("passphrase is required")
	}
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(passphrase)); err != nil {
		return current, errs.Forbidden("wrong passphrase")
	}
	sess := g.Guest(current)
	sess.Role = models.RoleAdmin
	return sess, nil
}
