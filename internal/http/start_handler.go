package http

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/example/exam-scheduler/internal/application"
)

type startService interface {
	ResolveStartHeaders(ctx context.Context, params application.ResolveStartParams) (application.StartDecision, error)
}

// StartHandler answers the polling request exam machines issue to learn
// whether a sitting should begin.
type StartHandler struct {
	service   startService
	responder responder
	logger    *slog.Logger
}

func NewStartHandler(service startService, logger *slog.Logger) *StartHandler {
	base := defaultLogger(logger)
	return &StartHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *StartHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "StartHandler", operation, attrs...)
}

func (h *StartHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	origin := requestOrigin(r)
	logger := h.log(r.Context(), "Resolve",
		"user_id", principal.UserID,
		"origin", origin,
	)

	decision, err := h.service.ResolveStartHeaders(r.Context(), application.ResolveStartParams{
		Principal:      principal,
		Origin:         origin,
		AgentSignature: r.Header.Get("X-Agent-Signature"),
	})
	if err != nil {
		var mismatchErr *application.MachineMismatchError
		if errors.As(err, &mismatchErr) {
			logger.InfoContext(r.Context(), "machine mismatch",
				"kind", string(mismatchErr.Kind),
				"expected_machine_id", mismatchErr.ExpectedMachineID,
			)
		} else {
			logger.ErrorContext(r.Context(), "start resolution failed", "error", err, "error_kind", application.ErrorKind(err))
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resp := startDecisionDTO{Action: string(decision.Action)}
	if decision.Action != "" {
		w.Header().Set("X-Exam-Action", string(decision.Action))
	}
	if decision.ExamHash != "" {
		w.Header().Set("X-Exam-Hash", decision.ExamHash)
		resp.ExamHash = decision.ExamHash
	}
	if decision.EnrolmentID != "" {
		w.Header().Set("X-Exam-Enrolment", decision.EnrolmentID)
		resp.EnrolmentID = decision.EnrolmentID
	}
	if !decision.StartsAt.IsZero() {
		startsAt := decision.StartsAt.UTC().Format(time.RFC3339Nano)
		w.Header().Set("X-Exam-Starts-At", startsAt)
		resp.StartsAt = startsAt
	}

	logger.InfoContext(r.Context(), "start headers resolved", "action", string(decision.Action))
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}

type startDecisionDTO struct {
	Action      string `json:"action,omitempty"`
	ExamHash    string `json:"exam_hash,omitempty"`
	EnrolmentID string `json:"enrolment_id,omitempty"`
	StartsAt    string `json:"starts_at,omitempty"`
}

// requestOrigin extracts the host part of the requester's network address.
func requestOrigin(r *http.Request) string {
	if r == nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
