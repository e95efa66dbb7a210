package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"specimenpro/internal/codec"
	"specimenpro/internal/status"
	"specimenpro/internal/validation"
	"specimenpro/models"
	"specimenpro/monitoring"
	"specimenpro/services"
)

// maxBodySize bounds request documents.
const maxBodySize = 16 << 20

type EventHandler struct {
	editor  *services.EditorService
	monitor *monitoring.Monitor
}

func NewEventHandler(editor *services.EditorService, monitor *monitoring.Monitor) *EventHandler {
	return &EventHandler{
		editor:  editor,
		monitor: monitor,
	}
}

type validationResponse struct {
	Valid  bool                `json:"valid"`
	Errors []status.FieldError `json:"errors"`
}

func readBody(e *core.RequestEvent) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(e.Request.Body, maxBodySize+1))
	if err != nil {
		return nil, apis.NewBadRequestError("Failed to read request body", err)
	}
	if len(data) > maxBodySize {
		return nil, apis.NewApiError(http.StatusRequestEntityTooLarge, "Request body too large", nil)
	}
	return data, nil
}

// decodeEvent maps codec failures to a 400 naming the offending field.
func (h *EventHandler) decodeEvent(e *core.RequestEvent) (*models.Event, error) {
	data, err := readBody(e)
	if err != nil {
		return nil, err
	}
	event, err := codec.UnmarshalEvent(data)
	h.monitor.TrackSerialization("decode", err)
	if err != nil {
		var mr *status.MalformedRecordError
		if errors.As(err, &mr) {
			return nil, apis.NewBadRequestError(fmt.Sprintf("Malformed event at %s", mr.Field), err)
		}
		return nil, apis.NewBadRequestError("Malformed event", err)
	}
	return event, nil
}

// Validate - POST /api/v1/events/validate
func (h *EventHandler) Validate(e *core.RequestEvent) error {
	event, err := h.decodeEvent(e)
	if err != nil {
		return err
	}

	errs := validation.Validate(event)
	h.monitor.TrackValidation(len(errs) == 0)

	return e.JSON(http.StatusOK, validationResponse{
		Valid:  len(errs) == 0,
		Errors: nonNil(errs),
	})
}

// Canonicalize - POST /api/v1/events/canonicalize
func (h *EventHandler) Canonicalize(e *core.RequestEvent) error {
	event, err := h.decodeEvent(e)
	if err != nil {
		return err
	}

	if errs := validation.Validate(event); len(errs) > 0 {
		h.monitor.TrackValidation(false)
		return e.JSON(http.StatusBadRequest, validationResponse{Errors: errs})
	}
	h.monitor.TrackValidation(true)

	data, err := codec.MarshalEvent(event)
	h.monitor.TrackSerialization("encode", err)
	if err != nil {
		return apis.NewBadRequestError("Failed to encode event", err)
	}
	return e.Blob(http.StatusOK, "application/json", data)
}

// List - GET /api/v1/events
func (h *EventHandler) List(e *core.RequestEvent) error {
	data, err := h.editor.Canonical()
	if err != nil {
		return apis.NewApiError(http.StatusInternalServerError, "Failed to encode corpus", err)
	}
	return e.Blob(http.StatusOK, "application/json", data)
}

// QRPayloads - GET /api/v1/events/{eventId}/qr
func (h *EventHandler) QRPayloads(e *core.RequestEvent) error {
	eventID := e.Request.PathValue("eventId")

	entries, err := h.editor.QRPayloads(eventID)
	switch {
	case errors.Is(err, status.ErrEventNotFound):
		return apis.NewNotFoundError("Event not found", err)
	case errors.Is(err, status.ErrInvalidIdentifier):
		return apis.NewBadRequestError("Event has an id that cannot be encoded", err)
	case err != nil:
		return apis.NewApiError(http.StatusInternalServerError, "Failed to build QR payloads", err)
	}

	payloads := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, map[string]any{
			"specimenId": entry.Specimen.ID,
			"name":       entry.Specimen.Name,
			"payload":    entry.Payload,
		})
	}
	return e.JSON(http.StatusOK, map[string]any{
		"eventId":  eventID,
		"payloads": payloads,
	})
}

func nonNil(errs status.ValidationErrors) []status.FieldError {
	if errs == nil {
		return []status.FieldError{}
	}
	return errs
}
