package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/exam-scheduler/internal/application"
	"github.com/example/exam-scheduler/internal/interval"
	"github.com/example/exam-scheduler/internal/workinghours"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	RemoveReservation(ctx context.Context, principal application.Principal, reservationID string) error
	OpeningHours(ctx context.Context, roomID string, date time.Time) ([]workinghours.OpeningHours, error)
}

type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reservation request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create",
		"user_id", principal.UserID,
		"exam_id", req.ExamID,
		"room_id", req.RoomID,
	)

	start, end, err := req.window()
	if err != nil {
		logger.ErrorContext(r.Context(), "invalid reservation interval", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	created, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		Principal:          principal,
		ExamID:             req.ExamID,
		RoomID:             req.RoomID,
		Interval:           interval.New(start, end),
		Accessibility:      req.Accessibility,
		OptionalSectionIDs: req.OptionalSectionIDs,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation request failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation created", "reservation_id", created.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reservationFromModel(created))
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	reservationID, ok := ReservationIDFromContext(r.Context())
	if !ok || reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	logger := h.log(r.Context(), "Delete",
		"user_id", principal.UserID,
		"reservation_id", reservationID,
	)

	if err := h.service.RemoveReservation(r.Context(), principal, reservationID); err != nil {
		logger.ErrorContext(r.Context(), "reservation removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Hours lists the bookable spans of a room for a calendar date. The date
// query parameter defaults to today when absent.
func (h *ReservationHandler) Hours(w http.ResponseWriter, r *http.Request, roomID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if roomID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateParam)
			return
		}
		date = parsed
	}

	logger := h.log(r.Context(), "Hours", "room_id", roomID, "date", date.Format("2006-01-02"))

	open, err := h.service.OpeningHours(r.Context(), roomID, date)
	if err != nil {
		logger.ErrorContext(r.Context(), "opening hours lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	spans := make([]openingHoursDTO, 0, len(open))
	for _, span := range open {
		spans = append(spans, openingHoursDTO{
			Start:          span.Window.Start.UTC().Format(time.RFC3339Nano),
			End:            span.Window.End.UTC().Format(time.RFC3339Nano),
			TZOffsetMillis: span.TZOffset.Milliseconds(),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, openingHoursResponse{RoomID: roomID, Hours: spans})
}

type reservationRequest struct {
	ExamID             string   `json:"exam_id"`
	RoomID             string   `json:"room_id"`
	Start              string   `json:"start"`
	End                string   `json:"end"`
	Accessibility      []string `json:"accessibility,omitempty"`
	OptionalSectionIDs []string `json:"optional_section_ids,omitempty"`
}

func (r reservationRequest) window() (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, r.Start)
	if err != nil {
		return time.Time{}, time.Time{}, errBadRequestBody
	}
	end, err := time.Parse(time.RFC3339, r.End)
	if err != nil {
		return time.Time{}, time.Time{}, errBadRequestBody
	}
	return start, end, nil
}

type reservationDTO struct {
	ID                 string   `json:"id"`
	UserID             string   `json:"user_id"`
	MachineID          string   `json:"machine_id"`
	Start              string   `json:"start"`
	End                string   `json:"end"`
	OptionalSectionIDs []string `json:"optional_section_ids,omitempty"`
}

func reservationFromModel(res application.Reservation) reservationDTO {
	return reservationDTO{
		ID:                 res.ID,
		UserID:             res.UserID,
		MachineID:          res.MachineID,
		Start:              res.Interval.Start.UTC().Format(time.RFC3339Nano),
		End:                res.Interval.End.UTC().Format(time.RFC3339Nano),
		OptionalSectionIDs: res.OptionalSectionIDs,
	}
}

type openingHoursResponse struct {
	RoomID string            `json:"room_id"`
	Hours  []openingHoursDTO `json:"hours"`
}

type openingHoursDTO struct {
	Start          string `json:"start"`
	End            string `json:"end"`
	TZOffsetMillis int64  `json:"tz_offset_millis"`
}
