package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"nastia-backend/internal/gemini"
	"nastia-backend/internal/ledger"
	"nastia-backend/internal/metrics"
	"nastia-backend/internal/middleware"
	"nastia-backend/internal/models"
	"nastia-backend/internal/watermark"
)

// Collaborators of the generation pipeline. Narrow interfaces so the
// orchestration is testable without live backends.

type Ledger interface {
	AuthorizeAndCharge(ctx context.Context, userID string, cost int) (string, error)
	Refund(ctx context.Context, userID string, amount int)
}

type Generator interface {
	GenerateImage(ctx context.Context, prompt string, inputImage []byte, mimeType string) ([]byte, error)
	GenerateVideo(ctx context.Context, req gemini.VideoRequest) ([]byte, error)
}

type Processor interface {
	Image(img image.Image, plan string) image.Image
	Video(data []byte, plan string, isAnimation bool) []byte
}

type ArtifactStore interface {
	Store(data []byte, ext, contentType string) string
}

type Recorder interface {
	InsertGeneration(ctx context.Context, userID, kind, url, prompt string) error
}

type GenerateHandler struct {
	ledger    Ledger
	generator Generator
	processor Processor
	store     ArtifactStore
	recorder  Recorder
}

func NewGenerateHandler(l Ledger, g Generator, p Processor, s ArtifactStore, r Recorder) *GenerateHandler {
	return &GenerateHandler{
		ledger:    l,
		generator: g,
		processor: p,
		store:     s,
		recorder:  r,
	}
}

// GenerateImage godoc
// @Summary     Generate an image
// @Description Charges credits, generates an image from the prompt (optionally editing an input image), watermarks free-tier output and returns the stored artifact URL.
// @Tags        generation
// @Accept      mpfd
// @Produce     json
// @Param       prompt formData string true "Prompt text"
// @Param       user_id formData string true "Requesting user id"
// @Param       aspect_ratio formData string false "16:9 or 9:16"
// @Param       files formData file false "Input image (first file wins)"
// @Param       from_image formData string false "Base64-encoded input image, used when no file is uploaded"
// @Success     200 {object} models.ImageResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     402 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /generate-image [post]
func (h *GenerateHandler) GenerateImage(c *gin.Context) {
	ctx := c.Request.Context()

	prompt := c.PostForm("prompt")
	if prompt == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "prompt is required"})
		return
	}

	userID := middleware.UserID(c, c.PostForm("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}

	input, inputMime, err := h.resolveInputImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid image payload",
			Message: err.Error(),
		})
		return
	}

	cost := ledger.ImageCost(len(input) > 0)
	plan, err := h.ledger.AuthorizeAndCharge(ctx, userID, cost)
	if err != nil {
		h.chargeError(c, err)
		return
	}

	// The image model has no aspect-ratio control for text-only generation,
	// so the target framing is appended to the prompt instead.
	genPrompt := prompt
	if len(input) == 0 {
		genPrompt += aspectInstruction(c.PostForm("aspect_ratio"))
	}

	data, err := h.generator.GenerateImage(ctx, genPrompt, input, inputMime)
	if err != nil {
		h.ledger.Refund(ctx, userID, cost)
		if errors.Is(err, gemini.ErrNoImage) {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "no image returned"})
			return
		}
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "image generation failed",
			Message: err.Error(),
		})
		return
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		h.ledger.Refund(ctx, userID, cost)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "image generation failed",
			Message: "generated payload is not a decodable image",
		})
		return
	}

	final, err := watermark.EncodeJPEG(h.processor.Image(img, plan))
	if err != nil {
		h.ledger.Refund(ctx, userID, cost)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "image encoding failed",
			Message: err.Error(),
		})
		return
	}

	url := h.store.Store(final, "jpg", "image/jpeg")
	h.record(ctx, userID, models.KindImage, url, prompt)

	c.JSON(http.StatusOK, models.ImageResponse{Image: url})
}

// GenerateVideo godoc
// @Summary     Generate a video
// @Description Charges 20 credits, submits a video generation (optionally animating a starting image), polls until completion, watermarks per policy and returns the stored artifact URL.
// @Tags        generation
// @Accept      mpfd
// @Produce     json
// @Param       prompt formData string true "Prompt text"
// @Param       user_id formData string true "Requesting user id"
// @Param       aspect_ratio formData string false "16:9 or 9:16"
// @Param       file_start formData file false "Starting image, marks the request as image animation"
// @Success     200 {object} models.VideoResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     402 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Failure     504 {object} models.ErrorResponse
// @Router      /generate-video [post]
func (h *GenerateHandler) GenerateVideo(c *gin.Context) {
	ctx := c.Request.Context()

	prompt := c.PostForm("prompt")
	if prompt == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "prompt is required"})
		return
	}

	userID := middleware.UserID(c, c.PostForm("user_id"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "user_id is required"})
		return
	}

	var start []byte
	var startMime string
	if fh, err := c.FormFile("file_start"); err == nil && fh != nil {
		start, startMime, err = readUpload(fh)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid image payload",
				Message: err.Error(),
			})
			return
		}
	}
	isAnimation := len(start) > 0

	cost := ledger.CostVideo
	plan, err := h.ledger.AuthorizeAndCharge(ctx, userID, cost)
	if err != nil {
		h.chargeError(c, err)
		return
	}

	data, err := h.generator.GenerateVideo(ctx, gemini.VideoRequest{
		Prompt:         prompt,
		AspectRatio:    c.PostForm("aspect_ratio"),
		StartImage:     start,
		StartImageMime: startMime,
	})
	if err != nil {
		h.ledger.Refund(ctx, userID, cost)
		switch {
		case errors.Is(err, gemini.ErrTimedOut):
			metrics.GenerationTimeouts.WithLabelValues(models.KindVideo).Inc()
			c.JSON(http.StatusGatewayTimeout, models.ErrorResponse{Error: "video generation timed out"})
		case errors.Is(err, gemini.ErrNoVideo):
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "no video returned"})
		default:
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "video generation failed",
				Message: err.Error(),
			})
		}
		return
	}

	final := h.processor.Video(data, plan, isAnimation)

	url := h.store.Store(final, "mp4", "video/mp4")
	h.record(ctx, userID, models.KindVideo, url, prompt)

	c.JSON(http.StatusOK, models.VideoResponse{Video: url})
}

// resolveInputImage picks at most one effective input image: the first
// uploaded file wins, then the base64 from_image field.
func (h *GenerateHandler) resolveInputImage(c *gin.Context) ([]byte, string, error) {
	if form, err := c.MultipartForm(); err == nil && form != nil {
		if files := form.File["files"]; len(files) > 0 {
			return readUpload(files[0])
		}
	}

	fromImage := c.PostForm("from_image")
	if fromImage == "" {
		return nil, "", nil
	}

	// Accept both raw base64 and data URIs.
	if idx := strings.Index(fromImage, ","); idx >= 0 && strings.HasPrefix(fromImage, "data:") {
		fromImage = fromImage[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(fromImage)
	if err != nil {
		return nil, "", errors.New("from_image is not valid base64")
	}
	return data, "image/jpeg", nil
}

func (h *GenerateHandler) chargeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ledger.ErrInsufficientCredits):
		c.JSON(http.StatusPaymentRequired, models.ErrorResponse{Error: "insufficient credits"})
	case errors.Is(err, ledger.ErrUserNotFound):
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "user not found"})
	default:
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "could not authorize credits",
			Message: err.Error(),
		})
	}
}

// record appends a history row. Best-effort: a missing history entry must
// never block the response.
func (h *GenerateHandler) record(ctx context.Context, userID, kind, url, prompt string) {
	if err := h.recorder.InsertGeneration(ctx, userID, kind, url, prompt); err != nil {
		metrics.HistoryWriteFailures.Inc()
		log.Error().Err(err).Str("user_id", userID).Str("kind", kind).Msg("history write suppressed")
	}
}

func readUpload(fh *multipart.FileHeader) ([]byte, string, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

func aspectInstruction(aspectRatio string) string {
	switch aspectRatio {
	case "16:9":
		return " The image must be in wide 16:9 landscape format."
	case "9:16":
		return " The image must be in tall 9:16 portrait format."
	}
	return ""
}
