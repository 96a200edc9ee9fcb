package route

import (
	"github.com/gofiber/fiber/v2"

	revCtrl "essaysmaster_backend/internals/features/essays/revision/controller"
	"essaysmaster_backend/internals/features/essays/revision/service"
	"essaysmaster_backend/internals/middlewares"
)

func RevisionUserRoutes(r fiber.Router, rounds *service.RoundService) {
	ctrl := revCtrl.NewRevisionController(rounds)

	g := r.Group("/essay-revisions")
	limit := middlewares.RoundRateLimiter()

	// combined endpoint: action=process | get_state
	g.Post("/feedback", limit, ctrl.Feedback)

	g.Post("/:submission_id/rounds/:round", limit, ctrl.ProcessRound)
	g.Get("/:submission_id/rounds/:round", ctrl.GetRound)
	g.Get("/:submission_id/state", ctrl.State)
	g.Get("/:submission_id/versions", ctrl.ListVersions)
	g.Get("/:submission_id/progress", ctrl.ListProgress)
}
