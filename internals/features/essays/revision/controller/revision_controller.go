package controller

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	dto "essaysmaster_backend/internals/features/essays/revision/dto"
	"essaysmaster_backend/internals/features/essays/revision/service"
	helper "essaysmaster_backend/internals/helpers"
)

type RevisionController struct {
	Rounds *service.RoundService
}

func NewRevisionController(rounds *service.RoundService) *RevisionController {
	return &RevisionController{Rounds: rounds}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// serviceError maps service errors onto the response envelope.
func serviceError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return helper.JsonError(c, fe.Code, fe.Message)
	}
	var re *service.RoundError
	if errors.As(err, &re) {
		return helper.JsonKindError(c, re.HTTPStatus(), string(re.Kind), re.Message)
	}
	kind := service.KindOf(err)
	return helper.JsonKindError(c, kind.HTTPStatus(), string(kind), "internal error")
}

func parseRound(c *fiber.Ctx) (int, error) {
	r, err := strconv.Atoi(strings.TrimSpace(c.Params("round")))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "round is not a number")
	}
	return r, nil
}

// =========================================================
// POST /essay-revisions/feedback
// Body: {submission_id, round, action, current_text, ...}
// =========================================================
func (h *RevisionController) Feedback(c *fiber.Ctx) error {
	studentID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return serviceError(c, err)
	}

	var req dto.FeedbackRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonKindError(c, fiber.StatusBadRequest, string(service.KindInvalidInput), "invalid payload")
	}
	req.Normalize()
	if err := validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsToMap(err))
	}
	submissionID := uuid.MustParse(req.SubmissionID)

	if req.Action == dto.ActionGetState {
		st, err := h.Rounds.Sessions.State(c.UserContext(), submissionID, studentID)
		if err != nil {
			return serviceError(c, err)
		}
		return helper.JsonOK(c, "ok", st)
	}

	in := req.ToProcess().ToInput(submissionID, studentID, req.Round, helper.GetFirstNameFromToken(c))
	res, err := h.Rounds.ProcessRound(c.UserContext(), in)
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonOK(c, "round processed", dto.NewRoundResponse(res))
}

// =========================================================
// POST /essay-revisions/:submission_id/rounds/:round
// =========================================================
func (h *RevisionController) ProcessRound(c *fiber.Ctx) error {
	studentID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return serviceError(c, err)
	}
	submissionID, err := helper.ParseUUIDParam(c, "submission_id")
	if err != nil {
		return serviceError(c, err)
	}
	round, err := parseRound(c)
	if err != nil {
		return serviceError(c, err)
	}

	var req dto.ProcessRoundRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonKindError(c, fiber.StatusBadRequest, string(service.KindInvalidInput), "invalid payload")
	}
	if err := validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsToMap(err))
	}

	res, err := h.Rounds.ProcessRound(c.UserContext(), req.ToInput(submissionID, studentID, round, helper.GetFirstNameFromToken(c)))
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonOK(c, "round processed", dto.NewRoundResponse(res))
}

// GET /essay-revisions/:submission_id/state
func (h *RevisionController) State(c *fiber.Ctx) error {
	studentID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return serviceError(c, err)
	}
	submissionID, err := helper.ParseUUIDParam(c, "submission_id")
	if err != nil {
		return serviceError(c, err)
	}
	st, err := h.Rounds.Sessions.State(c.UserContext(), submissionID, studentID)
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonOK(c, "ok", st)
}

// GET /essay-revisions/:submission_id/rounds/:round
func (h *RevisionController) GetRound(c *fiber.Ctx) error {
	studentID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return serviceError(c, err)
	}
	submissionID, err := helper.ParseUUIDParam(c, "submission_id")
	if err != nil {
		return serviceError(c, err)
	}
	round, err := parseRound(c)
	if err != nil {
		return serviceError(c, err)
	}
	a, err := h.Rounds.Artifact(c.UserContext(), submissionID, studentID, round)
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.NewArtifactResponse(a))
}

// GET /essay-revisions/:submission_id/versions?page=&per_page=
func (h *RevisionController) ListVersions(c *fiber.Ctx) error {
	studentID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return serviceError(c, err)
	}
	submissionID, err := helper.ParseUUIDParam(c, "submission_id")
	if err != nil {
		return serviceError(c, err)
	}
	p := helper.ResolvePaging(c, 20, 100)

	rows, total, err := h.Rounds.Versions(c.UserContext(), submissionID, studentID, p.Offset, p.Limit)
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonList(c, "ok", rows, helper.BuildPaginationFromOffset(total, p.Offset, p.Limit))
}

// GET /essay-revisions/:submission_id/progress
func (h *RevisionController) ListProgress(c *fiber.Ctx) error {
	studentID, err := helper.GetUserIDFromToken(c)
	if err != nil {
		return serviceError(c, err)
	}
	submissionID, err := helper.ParseUUIDParam(c, "submission_id")
	if err != nil {
		return serviceError(c, err)
	}
	rows, err := h.Rounds.ProgressOf(c.UserContext(), submissionID, studentID)
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonOK(c, "ok", dto.NewProgressResponses(rows))
}

// =========================================================
// ADMIN
// POST /essay-revisions/:submission_id/students/:student_id/reset
// Body: {round}
// =========================================================
func (h *RevisionController) Reset(c *fiber.Ctx) error {
	submissionID, err := helper.ParseUUIDParam(c, "submission_id")
	if err != nil {
		return serviceError(c, err)
	}
	studentID, err := helper.ParseUUIDParam(c, "student_id")
	if err != nil {
		return serviceError(c, err)
	}

	var req dto.ResetSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonKindError(c, fiber.StatusBadRequest, string(service.KindInvalidInput), "invalid payload")
	}
	if err := validate.Struct(&req); err != nil {
		return helper.JsonValidationError(c, helper.ValidationErrorsToMap(err))
	}

	sess, err := h.Rounds.Sessions.Reset(c.UserContext(), submissionID, studentID, req.Round)
	if err != nil {
		return serviceError(c, err)
	}
	return helper.JsonUpdated(c, "session reset", service.NewStateFromSession(sess))
}
