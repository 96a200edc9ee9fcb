package route

import (
	"github.com/gofiber/fiber/v2"

	revCtrl "essaysmaster_backend/internals/features/essays/revision/controller"
	"essaysmaster_backend/internals/features/essays/revision/service"
)

// RevisionAdminRoutes expects r to be guarded by a teacher-or-above role check.
func RevisionAdminRoutes(r fiber.Router, rounds *service.RoundService) {
	ctrl := revCtrl.NewRevisionController(rounds)

	g := r.Group("/essay-revisions")
	g.Post("/:submission_id/students/:student_id/reset", ctrl.Reset)
}
