// Package authtoken issues and verifies the API's bearer credentials.
//
// The identity provider proves who the caller is once; after that the
// client holds a short-lived HS256 access token and a long-lived opaque
// refresh token. Only HMAC methods are accepted on verify, and refresh
// tokens are bcrypt-hashed before they touch the database.
package authtoken

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

// DefaultAccessTTL is used when the configured TTL is zero.
const DefaultAccessTTL = 2 * time.Hour

// ErrInvalidToken covers expired, malformed, and badly signed tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims is what a verified access token asserts about the caller.
type Claims struct {
	UserID primitive.ObjectID
	Name   string
}

// Manager signs and verifies access tokens with a shared HMAC secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager builds a Manager. The secret must be non-empty; ttl of zero
// selects DefaultAccessTTL.
func NewManager(secret string, ttl time.Duration) (*Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("authtoken: empty signing secret")
	}
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs an access token for the user. Returns the token and its
// expiry.
func (m *Manager) Issue(userID primitive.ObjectID, name string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)

	claims := jwt.MapClaims{
		"sub":  userID.Hex(),
		"name": name,
		"iat":  now.Unix(),
		"nbf":  now.Unix(),
		"exp":  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature and validity window and returns the claims.
func (m *Manager) Verify(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected alg: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := mc["sub"].(string)
	uid, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, ErrInvalidToken
	}
	name, _ := mc["name"].(string)
	return &Claims{UserID: uid, Name: name}, nil
}

// NewRefreshToken mints an opaque refresh token. The wire form is
// "<tokenID>.<secret>"; only the bcrypt hash of the secret half is
// stored. Returns the token id, the wire token, and the hash.
func NewRefreshToken() (primitive.ObjectID, string, string, error) {
	id := primitive.NewObjectID()

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return primitive.NilObjectID, "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return primitive.NilObjectID, "", "", err
	}
	return id, id.Hex() + "." + secret, string(hash), nil
}

// SplitRefreshToken parses the wire form back into token id and secret.
func SplitRefreshToken(token string) (primitive.ObjectID, string, error) {
	idHex, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return primitive.NilObjectID, "", ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return primitive.NilObjectID, "", ErrInvalidToken
	}
	return id, secret, nil
}

// CheckRefreshSecret compares a presented secret against the stored
// bcrypt hash.
func CheckRefreshSecret(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
