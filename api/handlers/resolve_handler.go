package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/link-resolve-go/internal/app"
	"github.com/yourusername/link-resolve-go/internal/domain"
	"github.com/yourusername/link-resolve-go/internal/download"
)

// ResolveHandler handles link-resolution HTTP requests
type ResolveHandler struct {
	service    *app.ResolverService
	downloader *download.Manager
	logger     *zap.Logger
}

// NewResolveHandler creates a new resolve handler
func NewResolveHandler(service *app.ResolverService, downloader *download.Manager, logger *zap.Logger) *ResolveHandler {
	return &ResolveHandler{
		service:    service,
		downloader: downloader,
		logger:     logger,
	}
}

// ResolveRequest represents a request to resolve links in a text
type ResolveRequest struct {
	Text string `json:"text" binding:"required"`
}

// MediaItem is the serialized form of one materialized content item.
// A failed or rejected download fills Error and leaves Payload empty;
// the surrounding result is still returned.
type MediaItem struct {
	Kind     string  `json:"kind"`
	URL      string  `json:"url,omitempty"`
	Payload  string  `json:"payload,omitempty"`
	Size     int64   `json:"size,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Text     string  `json:"text,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// ResolveResponse represents a resolved link with materialized media
type ResolveResponse struct {
	Platform      domain.Platform `json:"platform"`
	Title         string          `json:"title,omitempty"`
	Text          string          `json:"text,omitempty"`
	Author        *domain.Author  `json:"author,omitempty"`
	URL           string          `json:"url"`
	Timestamp     *time.Time      `json:"timestamp,omitempty"`
	ForwardBundle bool            `json:"forward_bundle"`
	Contents      []MediaItem     `json:"contents"`
}

// Resolve handles POST /api/v1/resolve
func (h *ResolveHandler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Resolve(c.Request.Context(), req.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}

	response := ResolveResponse{
		Platform:      result.Platform,
		Title:         result.Title,
		Text:          result.Text,
		Author:        result.Author,
		URL:           result.URL,
		Timestamp:     result.Timestamp,
		ForwardBundle: result.ForwardBundle,
		Contents:      make([]MediaItem, 0, len(result.Contents)),
	}

	// Materialize each item independently so a single failed download
	// degrades only its own entry.
	for _, content := range result.Contents {
		response.Contents = append(response.Contents, h.materialize(c, content))
	}

	c.JSON(http.StatusOK, response)
}

func (h *ResolveHandler) materialize(c *gin.Context, content domain.MediaContent) MediaItem {
	item := MediaItem{Kind: string(content.Kind())}

	switch v := content.(type) {
	case *domain.VideoContent:
		item.Duration = v.Duration
	case *domain.AudioContent:
		item.Duration = v.Duration
	case *domain.GraphicsContent:
		item.Text = v.Text
	case *domain.StickerContent:
		item.Text = v.Alt
	}

	task := content.Task()
	if task == nil {
		return item
	}
	item.URL = task.URL

	payload, err := h.downloader.Payload(c.Request.Context(), task)
	if err != nil {
		h.logger.Warn("Media item failed to materialize",
			zap.String("url", task.URL), zap.Error(err))
		item.Error = err.Error()
		return item
	}
	item.Payload = payload
	if _, size, resErr := task.Result(); resErr == nil {
		item.Size = size
	}
	return item
}

// writeError maps dispatch errors to HTTP status codes
func (h *ResolveHandler) writeError(c *gin.Context, err error) {
	var disabledErr *domain.PlatformDisabledError
	var extractionErr *domain.ExtractionError

	switch {
	case errors.Is(err, domain.ErrNoMatch):
		c.JSON(http.StatusNotFound, gin.H{"error": "no supported link found"})
	case errors.As(err, &disabledErr):
		c.JSON(http.StatusForbidden, gin.H{
			"error":    err.Error(),
			"platform": disabledErr.Platform.Name,
		})
	case errors.As(err, &extractionErr):
		h.logger.Error("Extraction failed",
			zap.String("platform", extractionErr.Platform.Name), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{
			"error":    err.Error(),
			"platform": extractionErr.Platform.Name,
		})
	default:
		h.logger.Error("Resolve failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
