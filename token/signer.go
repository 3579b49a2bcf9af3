package token

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Signer signs session claims and hands jwt the key that verifies them.
type Signer interface {
	Sign(claims jwt.Claims) (string, error)
	Key(t *jwt.Token) (any, error)
	Method() jwt.SigningMethod
}

// HMACSigner signs with HS256 under a shared secret. The development
// backend is the only party that reads its own cookies, so a symmetric key is
// enough.
type HMACSigner struct {
	secret []byte
}

var _ Signer = (*HMACSigner)(nil)

func NewHMACSigner(secret string) *HMACSigner {
	return &HMACSigner{secret: []byte(secret)}
}

func (h *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	if len(h.secret) == 0 {
		return "", errors.New("HMACSigner.Sign: empty secret")
	}
	signed, err := jwt.NewWithClaims(h.Method(), claims).SignedString(h.secret)
	return signed, errors.Wrap(err, "HMACSigner.Sign")
}

func (h *HMACSigner) Key(t *jwt.Token) (any, error) {
	if t.Method.Alg() != h.Method().Alg() {
		return nil, errors.Errorf("HMACSigner.Key: token signed with %v", t.Header["alg"])
	}
	return h.secret, nil
}

func (h *HMACSigner) Method() jwt.SigningMethod {
	return jwt.SigningMethodHS256
}
