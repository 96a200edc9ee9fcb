package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"essaysmaster_backend/internals/constants"
	helper "essaysmaster_backend/internals/helpers"
)

const testSecret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(AuthJWT(AuthJWTOpts{Secret: testSecret, AllowCookieFallback: true}))
	app.Get("/me", func(c *fiber.Ctx) error {
		id, err := helper.GetUserIDFromToken(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"id":   id.String(),
			"role": helper.GetRoleFromToken(c),
			"name": helper.GetFirstNameFromToken(c),
		})
	})
	app.Post("/reset", OnlyRoles(constants.RoleErrorTeacher("reset"), constants.TeacherAndAbove...), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthJWT_HydratesLocals(t *testing.T) {
	uid := uuid.New()
	tok := sign(t, jwt.MapClaims{
		"id":        uid.String(),
		"user_name": "Ava Smith",
		"exp":       time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := newApp().Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthJWT_Rejects(t *testing.T) {
	app := newApp()
	cases := map[string]string{
		"missing":      "",
		"wrong secret": "Bearer " + sign(t, jwt.MapClaims{"id": uuid.NewString()}, "other"),
		"expired":      "Bearer " + sign(t, jwt.MapClaims{"id": uuid.NewString(), "exp": time.Now().Add(-time.Hour).Unix()}, testSecret),
		"bad user id":  "Bearer " + sign(t, jwt.MapClaims{"id": "not-a-uuid"}, testSecret),
	}
	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err, name)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
	}
}

func TestAuthJWT_CookieFallbackAndRoles(t *testing.T) {
	app := newApp()

	student := sign(t, jwt.MapClaims{"sub": uuid.NewString()}, testSecret)
	req := httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: student})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	teacher := sign(t, jwt.MapClaims{"sub": uuid.NewString(), "roles_global": []string{"Teacher"}}, testSecret)
	req = httptest.NewRequest(http.MethodPost, "/reset", nil)
	req.Header.Set("Authorization", "Bearer "+teacher)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestClaimHelpers(t *testing.T) {
	assert.Equal(t, "Ava", firstNameOf(jwt.MapClaims{"name": "Ava Smith"}))
	assert.Equal(t, "Jo", firstNameOf(jwt.MapClaims{"first_name": "Jo", "name": "Ava"}))
	assert.Empty(t, firstNameOf(jwt.MapClaims{}))

	assert.Equal(t, constants.RoleAdmin, roleOf(jwt.MapClaims{"role": "teacher", "roles_global": []any{"admin"}}))
	assert.Equal(t, constants.RoleStudent, roleOf(jwt.MapClaims{"role": "guest"}))
}
