package calendarapi

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tazhate/calclient/internal/domain"
)

// LoginRequest for POST /api/auth/login
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Tokens is the session token pair issued by the backend
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// CreateEventRequest is the creation payload for an event. It is separate
// from domain.Event: the server assigns id, creator, calendar and color.
type CreateEventRequest struct {
	Title       string                 `json:"title"`
	Description *string                `json:"description,omitempty"`
	StartTime   time.Time              `json:"startTime"`
	EndTime     *time.Time             `json:"endTime,omitempty"`
	Type        domain.EventType       `json:"type"`
	Recurrence  domain.EventRecurrence `json:"recurrence"`
	Color       *string                `json:"color,omitempty"`
}

// CreateCalendarRequest for POST /api/calendar
type CreateCalendarRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// UpdateCalendarRequest for PATCH /api/calendar/{id}; nil fields are left unchanged
type UpdateCalendarRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ShareRequest for POST /api/calendar/{id}/share
type ShareRequest struct {
	UserID string          `json:"userId"`
	Role   domain.UserRole `json:"role"`
}

// AddVisitorRequest for POST /api/calendar/{id}/visitor. The visitor is
// identified by id or by email.
type AddVisitorRequest struct {
	UserID *int64 `json:"id,omitempty"`
	Email  string `json:"email,omitempty"`
}

// RemoveVisitorRequest for DELETE /api/calendar/{id}/visitor
type RemoveVisitorRequest struct {
	VisitorID string `json:"visitorId"`
}

// errorBody is the backend error payload. Message is either a string or a
// list of strings.
type errorBody struct {
	Message    json.RawMessage `json:"message"`
	Error      string          `json:"error"`
	StatusCode int             `json:"statusCode"`
}

func (b *errorBody) text() string {
	if b == nil {
		return ""
	}
	if len(b.Message) > 0 {
		var s string
		if err := json.Unmarshal(b.Message, &s); err == nil {
			return s
		}
		var list []string
		if err := json.Unmarshal(b.Message, &list); err == nil {
			return strings.Join(list, "; ")
		}
	}
	return b.Error
}
