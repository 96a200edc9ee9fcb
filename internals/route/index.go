// file: internals/route/index.go
package routes

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"essaysmaster_backend/internals/constants"
	"essaysmaster_backend/internals/features/essays/revision/service"
	"essaysmaster_backend/internals/middlewares/auth"
	routeDetails "essaysmaster_backend/internals/route/details"
)

var startTime time.Time

type Deps struct {
	JWTSecret string
	Rounds    *service.RoundService
	// Ping checks the backing store for /health.
	Ping func(ctx context.Context) error
}

func SetupRoutes(app *fiber.App, d Deps) {
	startTime = time.Now()

	log.Println("[INFO] Setting up base routes...")
	BaseRoutes(app, d.Ping)

	jwt := auth.AuthJWT(auth.AuthJWTOpts{
		Secret:              d.JWTSecret,
		AllowCookieFallback: true,
	})

	// ===================== PRIVATE (USER) =====================
	log.Println("[INFO] Setting up PRIVATE group...")
	private := app.Group("/api/u", jwt)

	// ===================== ADMIN =====================
	log.Println("[INFO] Setting up ADMIN group (Auth + RoleCheck)...")
	admin := app.Group("/api/a", jwt,
		auth.OnlyRoles(constants.RoleErrorTeacher("admin"), constants.TeacherAndAbove...),
	)

	// ===================== MOUNT ROUTES =====================
	log.Println("[INFO] Mounting Essays routes...")
	routeDetails.EssaysUserRoutes(private, d.Rounds)
	routeDetails.EssaysAdminRoutes(admin, d.Rounds)
}
