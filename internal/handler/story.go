package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"path"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storytailer/api/internal/client"
	"github.com/storytailer/api/internal/model"
	"github.com/storytailer/api/internal/service"
	"github.com/storytailer/api/pkg/response"
)

const (
	maxImageSize    = 20 * 1024 * 1024 // 20MB
	defaultPage     = 1
	defaultPageSize = 10
	maxPageSize     = 100
)

type StoryHandler struct {
	service   *service.StoryService
	blobs     client.BlobStore
	validator *validator.Validate
}

func NewStoryHandler(svc *service.StoryService, blobs client.BlobStore, v *validator.Validate) *StoryHandler {
	return &StoryHandler{
		service:   svc,
		blobs:     blobs,
		validator: v,
	}
}

// Generate handles POST /api/stories/generate. It accepts a multipart form
// with a JSON "request" part and an "image" file, and replies 202 with the
// placeholder story.
func (h *StoryHandler) Generate(c *fiber.Ctx) error {
	var req model.StoryGenerationRequest
	if err := json.Unmarshal([]byte(c.FormValue("request")), &req); err != nil {
		return response.ValidationError(c, "request must be a JSON object", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Invalid generation request", validationDetails(err))
	}

	file, err := c.FormFile("image")
	if err != nil {
		return response.ValidationError(c, "Image file is required", nil)
	}
	if file.Size > maxImageSize {
		return response.ValidationError(c, "Image exceeds 20MB limit", map[string]interface{}{
			"maxSize":  maxImageSize,
			"fileSize": file.Size,
		})
	}

	f, err := file.Open()
	if err != nil {
		return response.ServiceError(c, "Failed to open image")
	}
	defer f.Close()

	imageBytes, err := io.ReadAll(f)
	if err != nil {
		return response.ServiceError(c, "Failed to read image")
	}

	story, err := h.service.Create(c.Context(), &req, imageBytes)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, model.NewStoryResponse(story))
}

// Get handles GET /api/stories/:storyId.
func (h *StoryHandler) Get(c *fiber.Ctx) error {
	storyID := c.Params("storyId")
	if storyID == "" {
		return response.ValidationError(c, "Story ID is required", nil)
	}

	story, err := h.service.GetByID(c.Context(), storyID)
	if err != nil {
		if errors.Is(err, model.ErrStoryNotFound) {
			return response.NotFound(c, "Story not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.NewStoryResponse(story))
}

// List handles GET /api/stories with page/pageSize query parameters. Story
// text is truncated to a short preview in the list view.
func (h *StoryHandler) List(c *fiber.Ctx) error {
	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("pageSize", defaultPageSize)

	if page < 1 {
		page = defaultPage
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	stories, total, err := h.service.List(c.Context(), page, pageSize)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.NewStoryListResponse(stories, total, page, pageSize))
}

// Delete handles DELETE /api/stories/:storyId.
func (h *StoryHandler) Delete(c *fiber.Ctx) error {
	storyID := c.Params("storyId")
	if storyID == "" {
		return response.ValidationError(c, "Story ID is required", nil)
	}

	if err := h.service.Delete(c.Context(), storyID); err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.NoContent(c)
}

// File handles GET /api/files/* and streams a stored artifact (image or
// audio) by its blob locator.
func (h *StoryHandler) File(c *fiber.Ctx) error {
	locator := c.Params("*")
	if locator == "" {
		return response.ValidationError(c, "File path is required", nil)
	}

	rc, err := h.blobs.Open(c.Context(), locator)
	if err != nil {
		return response.NotFound(c, "File not found")
	}

	contentType := mime.TypeByExtension(path.Ext(locator))
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	c.Set(fiber.HeaderContentType, contentType)

	return c.SendStream(rc)
}

func validationDetails(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
