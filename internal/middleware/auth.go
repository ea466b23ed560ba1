package middleware

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"

	"github.com/fathima-sithara/convert-service/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalUserID is the fiber.Ctx locals key holding the authenticated user.
const LocalUserID = "user_id"

// JWTVerifier verifies RS256 tokens and returns the user id claim.
type JWTVerifier struct {
	pub *rsa.PublicKey
}

func NewJWTVerifier(pubPath string) (*JWTVerifier, error) {
	b, err := os.ReadFile(pubPath)
	if err != nil {
		return nil, err
	}
	return NewJWTVerifierFromPEM(b)
}

func NewJWTVerifierFromPEM(pem []byte) (*JWTVerifier, error) {
	pub, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, err
	}
	return &JWTVerifier{pub: pub}, nil
}

func (j *JWTVerifier) VerifyToken(token string) (string, error) {
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return j.pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return "", err
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	for _, k := range []string{"user_id", "user_uuid", "sub"} {
		if v, ok := claims[k].(string); ok && v != "" {
			return v, nil
		}
	}
	return "", errors.New("user id not found in token")
}

func JWTAuth(verifier *JWTVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return utils.TextError(c, fiber.StatusUnauthorized, "missing authorization")
		}
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return utils.TextError(c, fiber.StatusUnauthorized, "invalid authorization")
		}
		userID, err := verifier.VerifyToken(token)
		if err != nil {
			return utils.TextError(c, fiber.StatusUnauthorized, "invalid token")
		}
		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}
