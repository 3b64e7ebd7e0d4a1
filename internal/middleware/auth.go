package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/bus-ticket-booking/internal/model"
)

// principalKey is the fiber Locals key holding the authenticated model.Principal.
const principalKey = "principal"

var (
	// ErrUnauthenticated is returned for missing, malformed or badly signed tokens
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrExpired is returned for well-formed tokens past their expiry
	ErrExpired = errors.New("token expired")
)

// Claims is the bearer token payload.
type Claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens issued for this service.
type TokenVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenVerifier creates a TokenVerifier for the shared secret and issuer.
func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for the principal that expires after ttl.
// Token issuance belongs to the account service; this exists for tooling and tests.
func (v *TokenVerifier) Issue(p model.Principal, ttl time.Duration) (string, error) {
	now := v.now()
	claims := Claims{
		UserID: p.UserID,
		Role:   p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
			Subject:   p.UserID.String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the principal it names.
// Returns ErrExpired for expired tokens and ErrUnauthenticated for anything else that fails.
func (v *TokenVerifier) Verify(token string) (model.Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	},
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, ErrExpired
		}
		return model.Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == uuid.Nil || !claims.Role.Valid() {
		return model.Principal{}, ErrUnauthenticated
	}
	return model.Principal{UserID: claims.UserID, Role: claims.Role}, nil
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the caller's principal for the handlers.
func Authenticate(v *TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, found := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		token = strings.TrimSpace(token)
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authorization header must be: Bearer <token>",
				"code":  "UNAUTHENTICATED",
			})
		}

		p, err := v.Verify(token)
		if err != nil {
			if errors.Is(err, ErrExpired) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "token expired",
					"code":  "EXPIRED",
				})
			}
			log.Debug().Err(err).Str("path", c.Path()).Msg("rejected bearer token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
				"code":  "UNAUTHENTICATED",
			})
		}

		WithPrincipal(c, p)
		return c.Next()
	}
}

// RequireRole allows only callers holding one of roles. It must run after Authenticate.
func RequireRole(roles ...model.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
				"code":  "UNAUTHENTICATED",
			})
		}
		for _, r := range roles {
			if p.Role == r {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "forbidden",
			"code":  "FORBIDDEN",
		})
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *fiber.Ctx) (model.Principal, bool) {
	p, ok := c.Locals(principalKey).(model.Principal)
	return p, ok
}

// WithPrincipal stores p as the authenticated caller.
func WithPrincipal(c *fiber.Ctx, p model.Principal) {
	c.Locals(principalKey, p)
}
