package handlers

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/gofiber/fiber/v2"
)

type ContentHandler struct {
	pipeline       *services.PipelineService
	contentService *services.ContentService
}

func NewContentHandler(pipeline *services.PipelineService, contentService *services.ContentService) *ContentHandler {
	return &ContentHandler{pipeline: pipeline, contentService: contentService}
}

// Upload accepts a multipart form with title, description, tags, is_paid and
// file, and answers with the pending record.
func (h *ContentHandler) Upload(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid multipart form",
		})
	}

	in := services.SubmissionInput{
		Title:       formValue(form, "title"),
		Description: formValue(form, "description"),
		Tags:        formTags(form),
		IsPaid:      formBool(form, "is_paid"),
	}
	if files := form.File["file"]; len(files) > 0 {
		file, err := readFormFile(files[0])
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Could not read uploaded file",
			})
		}
		in.File = file
	}

	rec, err := h.pipeline.Submit(c.UserContext(), sess, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

func (h *ContentHandler) ListMine(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	records, err := h.contentService.ListMine(c.UserContext(), sess)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ContentListResponse{Data: records, Count: len(records)})
}

func (h *ContentHandler) GetMine(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	rec, err := h.contentService.GetOwned(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}

func (h *ContentHandler) Edit(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	var req dto.EditContentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	rec, err := h.contentService.Edit(c.UserContext(), sess, c.Params("id"), req.Input())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}

func (h *ContentHandler) Archive(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	rec, err := h.contentService.Archive(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rec)
}

func (h *ContentHandler) Delete(c *fiber.Ctx) error {
	sess, err := session.FromCtx(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := h.contentService.Delete(c.UserContext(), sess, c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Content deleted"})
}

// ListApproved serves the public feed, optionally filtered by ?tag=.
func (h *ContentHandler) ListApproved(c *fiber.Ctx) error {
	records, err := h.contentService.ListApproved(c.UserContext(), c.Query("tag"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ContentListResponse{Data: records, Count: len(records)})
}

func (h *ContentHandler) GetPublic(c *fiber.Ctx) error {
	content, err := h.contentService.GetPublic(c.UserContext(), session.Optional(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(content)
}

func (h *ContentHandler) Topics(c *fiber.Ctx) error {
	topics, err := h.contentService.Topics(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.TopicsResponse{Topics: topics})
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// formTags accepts repeated tags fields as well as a comma-separated list.
func formTags(form *multipart.Form) []string {
	var tags []string
	for _, v := range form.Value["tags"] {
		tags = append(tags, strings.Split(v, ",")...)
	}
	return tags
}

func formBool(form *multipart.Form, key string) bool {
	b, _ := strconv.ParseBool(formValue(form, key))
	return b
}

func readFormFile(fh *multipart.FileHeader) (services.FileInput, error) {
	f, err := fh.Open()
	if err != nil {
		return services.FileInput{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxFileSize+1))
	if err != nil {
		return services.FileInput{}, err
	}
	return services.FileInput{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
