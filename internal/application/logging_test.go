package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/exam-scheduler/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctxLogger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)

	base := slog.New(slog.NewTextHandler(io.Discard, nil))
	logger := serviceLogger(ctx, base, "ReservationService", "CreateReservation", "user_id", "u1")
	logger.Info("test")

	out := buf.String()
	for _, want := range []string{"service=ReservationService", "operation=CreateReservation", "user_id=u1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got %q", want, out)
		}
	}
}

func TestServiceLoggerFallsBackToBase(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	serviceLogger(context.Background(), base, "AuthService", "").Info("test")

	out := buf.String()
	if !strings.Contains(out, "service=AuthService") {
		t.Fatalf("expected base logger output, got %q", out)
	}
	if strings.Contains(out, "operation=") {
		t.Fatalf("expected no operation attribute, got %q", out)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{ErrNotFound, "not_found"},
		{ErrAlreadyExists, "already_exists"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrAccountDisabled, "account_disabled"},
		{ErrSessionExpired, "session_expired"},
		{ErrSessionRevoked, "session_revoked"},
		{ErrEnrolmentNotFound, "enrolment_not_found"},
		{ErrNoMachineAvailable, "no_machine_available"},
		{ErrReservationInEffect, "reservation_in_effect"},
		{ErrExternalCancellationFailed, "external_cancellation_failed"},
		{ErrDataChanged, "data_changed"},
		{fmt.Errorf("fetch enrolment: %w", ErrEnrolmentNotFound), "enrolment_not_found"},
		{&EligibilityError{Reason: ReasonTooManySections}, "eligibility_check_failed"},
		{&MachineMismatchError{Kind: MismatchUnknownMachine}, "machine_mismatch"},
		{&ValidationError{FieldErrors: map[string]string{"user_id": "required"}}, "validation"},
		{errors.New("disk full"), "unexpected"},
	}

	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
