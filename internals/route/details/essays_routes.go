package details

import (
	"github.com/gofiber/fiber/v2"

	RevisionRoutes "essaysmaster_backend/internals/features/essays/revision/route"
	"essaysmaster_backend/internals/features/essays/revision/service"
)

/* ===================== USER ===================== */

func EssaysUserRoutes(r fiber.Router, rounds *service.RoundService) {
	RevisionRoutes.RevisionUserRoutes(r, rounds)
}

/* ===================== ADMIN ===================== */

func EssaysAdminRoutes(r fiber.Router, rounds *service.RoundService) {
	RevisionRoutes.RevisionAdminRoutes(r, rounds)
}
