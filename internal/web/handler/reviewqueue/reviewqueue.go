// Package reviewqueue provides the JSON API handlers for moderating
// pending gallery items.
package reviewqueue

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoWeddingShare/GoWeddingShare/internal/auth"
	"github.com/GoWeddingShare/GoWeddingShare/internal/config"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/auditlog"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/controller/galleryitem"
	"github.com/GoWeddingShare/GoWeddingShare/internal/db/models"
	"github.com/GoWeddingShare/GoWeddingShare/internal/review"
	"github.com/GoWeddingShare/GoWeddingShare/internal/web/handler"
)

const (
	// Path is the base path for the review endpoints.
	Path = handler.APIPath + "/review"
)

// Service moderates pending uploads.
type Service struct {
	handler.Service
	cfg      *config.Config
	db       *gorm.DB
	workflow *review.Workflow
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, db *gorm.DB) error {
	if app == nil || cfg == nil || db == nil {
		return errors.New(handler.ErrNilACDFatalLogMsg)
	}

	s.db = db
	s.cfg = cfg
	s.workflow = review.NewWorkflow(db, review.DiskFileOps{}, cfg.Uploads.Directory)

	admin := auth.RequireLevel(models.UserLevelAdmin)

	app.Get(Path+"/pending", admin, s.Pending)
	app.Post(Path+"/bulk", admin, s.Bulk)
	app.Post(Path+"/:id", admin, s.Review)

	return nil
}

// Pending lists items awaiting review, oldest first. A galleryId of 0
// spans all galleries.
func (s *Service) Pending(c *fiber.Ctx) error {
	galleryID, err := strconv.ParseUint(c.Query("galleryId", "0"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid gallery id")
	}

	items, err := galleryitem.ListPending(c.Context(), s.db, galleryID)
	if err != nil {
		log.Error().Err(err).Uint64("gallery_id", galleryID).Msg("failed to list pending items")
		return fiber.ErrInternalServerError
	}

	return c.JSON(fiber.Map{
		"items": items,
		"count": len(items),
	})
}

type request struct {
	Action string `json:"action" form:"action"`
}

func parseAction(raw string) (review.Action, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approve", "approved":
		return review.ActionApproved, nil
	case "reject", "rejected":
		return review.ActionRejected, nil
	default:
		return review.ActionUnknown, review.ErrUnknownAction
	}
}

// Review applies a verdict to a single pending item.
func (s *Service) Review(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid item id")
	}

	in := new(request)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	action, err := parseAction(in.Action)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	if err := s.workflow.Review(c.Context(), id, action); err != nil {
		switch {
		case errors.Is(err, galleryitem.ErrItemNotFound):
			return fiber.ErrNotFound
		case errors.Is(err, review.ErrItemNotPending):
			return fiber.NewError(fiber.StatusConflict, err.Error())
		}

		log.Error().Err(err).Uint64("item_id", id).Msg("review failed")

		return fiber.ErrInternalServerError
	}

	s.audit(c, "reviewed item "+strconv.FormatUint(id, 10)+" with action "+in.Action)

	return c.SendStatus(fiber.StatusNoContent)
}

// Bulk applies a verdict to every pending item. A failing item is
// reported but never stops the remaining items from being processed.
func (s *Service) Bulk(c *fiber.Ctx) error {
	in := new(request)
	if err := c.BodyParser(in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	action, err := parseAction(in.Action)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := s.workflow.BulkReview(c.Context(), action)
	if err != nil {
		log.Error().Err(err).Msg("bulk review failed")
		return fiber.ErrInternalServerError
	}

	failed := make([]fiber.Map, 0, len(result.Failed))
	for _, outcome := range result.Failed {
		failed = append(failed, fiber.Map{
			"id":    outcome.ItemID,
			"title": outcome.Title,
			"error": outcome.Err.Error(),
		})
	}

	s.audit(c, "bulk reviewed pending items with action "+in.Action)

	return c.JSON(fiber.Map{
		"succeeded": len(result.Succeeded),
		"failed":    failed,
	})
}

func (s *Service) audit(c *fiber.Ctx, message string) {
	username := ""
	if current := auth.CurrentUser(c); current != nil {
		username = current.Username
	}

	auditlog.Add(c.Context(), s.db, username, message)
}
