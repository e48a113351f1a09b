package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/exam-scheduler/internal/application"
)

var (
	errBadRequestBody         = errors.New("the request body could not be parsed")
	errInvalidReservationID   = errors.New("a reservation id is required")
	errInvalidRoomID          = errors.New("a room id is required")
	errInvalidDateParam       = errors.New("the date parameter must be formatted as YYYY-MM-DD")
	errMissingSessionToken    = errors.New("a session token is required")
	errMissingRevocationToken = errors.New("a token to revoke is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError translates application sentinels and typed errors into
// HTTP status codes and stable error codes.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not permitted to perform this operation",
		})
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "the email address or password is incorrect",
		})
	case errors.Is(err, application.ErrAccountDisabled):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_ACCOUNT_DISABLED",
			Message:   "this account has been disabled",
		})
	case errors.Is(err, application.ErrSessionExpired):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "the session has expired, please sign in again",
		})
	case errors.Is(err, application.ErrSessionRevoked):
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_REVOKED",
			Message:   "the session has been revoked, please sign in again",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrEnrolmentNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "ENROLMENT_NOT_FOUND",
			Message:   "no open enrolment exists for this exam",
		})
	case errors.Is(err, application.ErrNoMachineAvailable):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "NO_MACHINE_AVAILABLE",
			Message:   "no capable machine is free for the requested interval",
		})
	case errors.Is(err, application.ErrReservationInEffect):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESERVATION_IN_EFFECT",
			Message:   "the reservation has already started and can no longer be removed",
		})
	case errors.Is(err, application.ErrExternalCancellationFailed):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "EXTERNAL_CANCELLATION_FAILED",
			Message:   "the remote host refused to release the existing reservation",
		})
	case errors.Is(err, application.ErrDataChanged):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "DATA_CHANGED",
			Message:   "the record was modified concurrently, please retry with fresh data",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{Message: "the resource already exists"})
	default:
		var eligErr *application.EligibilityError
		if errors.As(err, &eligErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				ErrorCode: "ELIGIBILITY_CHECK_FAILED",
				Message:   "the eligibility check failed",
				Errors:    map[string]string{"reason": eligErr.Reason},
			})
			return
		}

		var mismatchErr *application.MachineMismatchError
		if errors.As(err, &mismatchErr) {
			r.writeJSON(ctx, w, http.StatusConflict, machineMismatchResponse(mismatchErr))
			return
		}

		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "the request contains invalid values",
				Errors:  vErr.FieldErrors,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal server error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func machineMismatchResponse(err *application.MachineMismatchError) errorResponse {
	details := map[string]string{"kind": string(err.Kind)}
	if err.Origin != "" {
		details["origin"] = err.Origin
	}
	if err.MachineID != "" {
		details["machine_id"] = err.MachineID
	}
	if err.MachineRoomID != "" {
		details["machine_room_id"] = err.MachineRoomID
	}
	if err.ExpectedMachineID != "" {
		details["expected_machine_id"] = err.ExpectedMachineID
	}
	if err.ExpectedRoomID != "" {
		details["expected_room_id"] = err.ExpectedRoomID
	}
	return errorResponse{
		ErrorCode: "MACHINE_MISMATCH",
		Message:   "the request does not originate from the assigned exam machine",
		Errors:    details,
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
