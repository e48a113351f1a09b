package application

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/exam-scheduler/internal/interval"
	"github.com/example/exam-scheduler/internal/persistence"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Enrolment lifecycle states.
const (
	EnrolmentStatePublished      = "PUBLISHED"
	EnrolmentStateStudentStarted = "STUDENT_STARTED"
	EnrolmentStateFinished       = "FINISHED"
)

// ExamKind discriminates the arms of the ExamRef union.
type ExamKind int

const (
	// ExamLocal is an exam authored and hosted on this instance.
	ExamLocal ExamKind = iota
	// ExamCollaborative is an exam shared with a federated host.
	ExamCollaborative
	// ExamExternal is an exam whose authoritative copy lives elsewhere; only
	// a mirror is stored here.
	ExamExternal
)

// Exam carries the attributes every exam kind shares.
type Exam struct {
	ID                  string
	Name                string
	Hash                string
	Duration            time.Duration
	State               string
	Private             bool
	NetworkTransparent  bool
	AgentKey            string
	MinOptionalSections int
	MaxOptionalSections int
	RequiredSoftware    []string
}

// CollaborativeExam is an exam shared with a federated host.
type CollaborativeExam struct {
	Exam
}

// ExternalExam mirrors an exam document held on a federated host. The
// mirrored content embeds the authoritative state.
type ExternalExam struct {
	Exam
	Content string
}

// ExamRef is a tagged union over the three exam kinds. Exactly one arm is
// non-nil, selected by Kind.
type ExamRef struct {
	Kind          ExamKind
	Local         *Exam
	Collaborative *CollaborativeExam
	External      *ExternalExam
}

// Base returns the shared attributes of whichever arm is populated.
func (r ExamRef) Base() Exam {
	switch r.Kind {
	case ExamCollaborative:
		if r.Collaborative != nil {
			return r.Collaborative.Exam
		}
	case ExamExternal:
		if r.External != nil {
			return r.External.Exam
		}
	default:
		if r.Local != nil {
			return *r.Local
		}
	}
	return Exam{}
}

// IsStartable reports whether an enrolment in the given state may enter this
// exam, resolved per kind. For external exams the state embedded in the
// mirrored content replaces the enrolment state check.
func (r ExamRef) IsStartable(enrolmentState string) bool {
	switch r.Kind {
	case ExamCollaborative:
		return enrolmentState == EnrolmentStatePublished
	case ExamExternal:
		state := externalContentState(r.External)
		return state == EnrolmentStatePublished || state == EnrolmentStateStudentStarted
	default:
		return enrolmentState == EnrolmentStatePublished || enrolmentState == EnrolmentStateStudentStarted
	}
}

func externalContentState(exam *ExternalExam) string {
	if exam == nil || exam.Content == "" {
		return ""
	}
	var doc struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal([]byte(exam.Content), &doc); err != nil {
		return ""
	}
	return doc.State
}

// ExamRefFromRecord lifts a stored exam row into the tagged union.
func ExamRefFromRecord(rec persistence.Exam) (ExamRef, error) {
	base := Exam{
		ID:                  rec.ID,
		Name:                rec.Name,
		Hash:                rec.Hash,
		Duration:            time.Duration(rec.DurationMillis) * time.Millisecond,
		State:               rec.State,
		Private:             rec.Private,
		NetworkTransparent:  rec.NetworkTransparent,
		MinOptionalSections: rec.MinOptionalSections,
		MaxOptionalSections: rec.MaxOptionalSections,
		RequiredSoftware:    append([]string(nil), rec.RequiredSoftware...),
	}
	if rec.AgentKey != nil {
		base.AgentKey = *rec.AgentKey
	}

	switch rec.Kind {
	case persistence.ExamKindLocal:
		return ExamRef{Kind: ExamLocal, Local: &base}, nil
	case persistence.ExamKindCollaborative:
		return ExamRef{Kind: ExamCollaborative, Collaborative: &CollaborativeExam{Exam: base}}, nil
	case persistence.ExamKindExternal:
		content := ""
		if rec.Content != nil {
			content = *rec.Content
		}
		return ExamRef{Kind: ExamExternal, External: &ExternalExam{Exam: base, Content: content}}, nil
	default:
		return ExamRef{}, fmt.Errorf("application: unknown exam kind %q", rec.Kind)
	}
}

// CreateReservationParams wraps the data required to book an exam sitting.
type CreateReservationParams struct {
	Principal          Principal
	ExamID             string
	RoomID             string
	Interval           interval.Interval
	Accessibility      []string
	OptionalSectionIDs []string
}

// Reservation is the service-facing view of a committed booking.
type Reservation struct {
	ID                 string
	UserID             string
	MachineID          string
	Interval           interval.Interval
	External           bool
	OptionalSectionIDs []string
}

// StartAction tells the caller what the session resolver decided.
type StartAction string

const (
	// ActionStartExam signals an ongoing sitting the user should enter now.
	ActionStartExam StartAction = "start_exam"
	// ActionUpcoming signals the nearest sitting later today.
	ActionUpcoming StartAction = "upcoming"
	// ActionNothingToday signals a registered exam machine with no sitting
	// scheduled for the rest of the day.
	ActionNothingToday StartAction = "nothing_today"
)

// StartDecision is the outcome of resolving the start headers for a request.
type StartDecision struct {
	Action      StartAction
	ExamHash    string
	EnrolmentID string
	StartsAt    time.Time
}

// ResolveStartParams wraps the data required to resolve start headers.
type ResolveStartParams struct {
	Principal Principal
	// Origin is the host part of the requester's network address.
	Origin string
	// AgentSignature carries the signed header presented by browser-based
	// exam agents; only consulted for network-transparent exams.
	AgentSignature string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email       string
	Password    string
	Fingerprint string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    persistence.User
	Session persistence.Session
}

// RefreshSessionParams captures the data required to rotate a session token.
type RefreshSessionParams struct {
	Token       string
	Fingerprint string
}

// RefreshSessionResult captures the outcome of a session refresh.
type RefreshSessionResult struct {
	Session persistence.Session
}
