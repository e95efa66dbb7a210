package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"specimenpro/internal/status"
	"specimenpro/services"
)

type PublishHandler struct {
	editor    *services.EditorService
	publisher *services.PublishService
}

func NewPublishHandler(editor *services.EditorService, publisher *services.PublishService) *PublishHandler {
	return &PublishHandler{
		editor:    editor,
		publisher: publisher,
	}
}

// Publish - POST /api/v1/publish
func (h *PublishHandler) Publish(e *core.RequestEvent) error {
	// saving first pins any newly assigned ids in the corpus file
	if err := h.editor.Save(); err != nil {
		var errs status.ValidationErrors
		if errors.As(err, &errs) {
			return e.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}
		return apis.NewApiError(http.StatusInternalServerError, "Failed to save corpus", err)
	}
	corpus, err := h.editor.Snapshot()
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to read corpus", err)
	}

	result, err := h.publisher.Publish(e.Request.Context(), corpus)
	if err != nil {
		var errs status.ValidationErrors
		if errors.As(err, &errs) {
			return e.JSON(http.StatusUnprocessableEntity, validationResponse{Errors: errs})
		}
		slog.Error("Publish failed", "error", err)
		return apis.NewApiError(http.StatusBadGateway, "Failed to publish", err)
	}

	return e.JSON(http.StatusOK, result)
}

// PublishedCorpus - GET /events.json
func (h *PublishHandler) PublishedCorpus(e *core.RequestEvent) error {
	data, err := h.publisher.Published(e.Request.Context())
	if errors.Is(err, status.ErrNotPublished) {
		return apis.NewNotFoundError("Nothing has been published yet", err)
	}
	if err != nil {
		return apis.NewApiError(http.StatusServiceUnavailable, "Published corpus unavailable", err)
	}
	return e.Blob(http.StatusOK, "application/json", data)
}

// PublishedEvent - GET /events/{eventId}
func (h *PublishHandler) PublishedEvent(e *core.RequestEvent) error {
	data, err := h.publisher.PublishedEvent(e.Request.Context(), e.Request.PathValue("eventId"))
	if errors.Is(err, status.ErrEventNotFound) {
		return apis.NewNotFoundError("Event not published", err)
	}
	if err != nil {
		return apis.NewApiError(http.StatusServiceUnavailable, "Published event unavailable", err)
	}
	return e.Blob(http.StatusOK, "application/json", data)
}
