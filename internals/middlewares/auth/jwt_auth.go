package auth

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"essaysmaster_backend/internals/constants"
	helper "essaysmaster_backend/internals/helpers"
)

type AuthJWTOpts struct {
	Secret              string
	AllowCookieFallback bool // use cookie access_token when no Bearer header
}

// AuthJWT verifies an HMAC-signed token and hydrates user_id, role and
// first_name into Locals.
func AuthJWT(o AuthJWTOpts) fiber.Handler {
	secret := strings.TrimSpace(o.Secret)
	if secret == "" {
		panic("AuthJWT: Secret is required")
	}

	return func(c *fiber.Ctx) error {
		raw := helper.GetRawAccessToken(c, o.AllowCookieFallback)
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
			}
			return []byte(secret), nil
		})
		if err != nil || !tok.Valid {
			log.Printf("[AuthJWT] invalid token: %v", err)
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
		}

		// user_id: id, sub, user_id in that order
		var uid string
		for _, k := range []string{"id", "sub", "user_id"} {
			if uid = strClaim(claims, k); uid != "" {
				break
			}
		}
		if _, err := uuid.Parse(uid); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized - Invalid or missing user ID")
		}
		c.Locals(helper.LocUserID, uid)

		if name := firstNameOf(claims); name != "" {
			c.Locals(helper.LocFirstName, name)
		}
		c.Locals(helper.LocRole, roleOf(claims))

		return c.Next()
	}
}

func strClaim(m jwt.MapClaims, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// first_name wins; otherwise the first word of user_name or name.
func firstNameOf(m jwt.MapClaims) string {
	if s := strClaim(m, "first_name"); s != "" {
		return s
	}
	for _, k := range []string{"user_name", "name"} {
		if f := strings.Fields(strClaim(m, k)); len(f) > 0 {
			return f[0]
		}
	}
	return ""
}

// roleOf picks the strongest role from "role" or "roles_global";
// a token without roles is a student.
func roleOf(m jwt.MapClaims) string {
	roles := readStringSlice(m["roles_global"])
	if r := strClaim(m, "role"); r != "" {
		roles = append(roles, r)
	}
	has := map[string]struct{}{}
	for _, r := range roles {
		has[strings.ToLower(r)] = struct{}{}
	}
	for _, want := range []string{constants.RoleOwner, constants.RoleAdmin, constants.RoleTeacher, constants.RoleStudent} {
		if _, ok := has[want]; ok {
			return want
		}
	}
	return constants.RoleStudent
}

func readStringSlice(v any) []string {
	out := make([]string, 0)
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, it := range t {
			if s, ok := it.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
