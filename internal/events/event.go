// Package events lists the domain events survey modules exchange. The bus
// itself lives in platform/events; the aliases below keep modules to a
// single import.
package events

import (
	"time"

	"fieldsurvey/platform/events"
	"fieldsurvey/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

func NewInMemoryBus(log *logger.Logger) *InMemoryBus { return events.NewInMemoryBus(log) }

// Subscription keys.
const (
	NameUserSignedUp           = "auth.user.signed_up"
	NamePasswordResetRequested = "auth.password.reset_requested"
	NameDataPointSaved         = "datapoints.saved"
	NameDataPointDeleted       = "datapoints.deleted"
)

type UserSignedUp struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

// PasswordResetRequested carries the link to mail; the raw token is only
// inside ResetURL.
type PasswordResetRequested struct {
	BaseEvent
	UserID   uuid.UUID `json:"userId"`
	Email    string    `json:"email"`
	ResetURL string    `json:"resetUrl"`
}

// DataPointSaved follows a create, replace or patch. Document is the full
// stored data point in document store field names; Version is the row's
// updated_at.
type DataPointSaved struct {
	BaseEvent
	StudyID     string         `json:"studyId"`
	SurveyID    string         `json:"surveyId"`
	DataPointID uuid.UUID      `json:"dataPointId"`
	Created     bool           `json:"created"`
	Version     time.Time      `json:"version"`
	Document    map[string]any `json:"document"`
}

type DataPointDeleted struct {
	BaseEvent
	StudyID     string    `json:"studyId"`
	SurveyID    string    `json:"surveyId"`
	DataPointID uuid.UUID `json:"dataPointId"`
	DeletedAt   time.Time `json:"deletedAt"`
}

func (UserSignedUp) EventName() string           { return NameUserSignedUp }
func (PasswordResetRequested) EventName() string { return NamePasswordResetRequested }
func (DataPointSaved) EventName() string         { return NameDataPointSaved }
func (DataPointDeleted) EventName() string       { return NameDataPointDeleted }
