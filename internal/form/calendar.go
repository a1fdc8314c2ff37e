package form

import (
	"github.com/tazhate/calclient/internal/clients/calendarapi"
)

// CalendarForm creates or edits a calendar
type CalendarForm struct {
	Title       string `json:"title" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=500"`
}

func (v *Validator) CreateCalendar(f CalendarForm) (calendarapi.CreateCalendarRequest, error) {
	if errs := v.check(f); errs != nil {
		return calendarapi.CreateCalendarRequest{}, errs
	}
	return calendarapi.CreateCalendarRequest{Title: f.Title, Description: optional(f.Description)}, nil
}

// UpdateCalendar always sends both fields so a description can be cleared
func (v *Validator) UpdateCalendar(f CalendarForm) (calendarapi.UpdateCalendarRequest, error) {
	if errs := v.check(f); errs != nil {
		return calendarapi.UpdateCalendarRequest{}, errs
	}
	title, desc := f.Title, f.Description
	return calendarapi.UpdateCalendarRequest{Title: &title, Description: &desc}, nil
}

// InviteForm adds a visitor by email
type InviteForm struct {
	Email string `json:"email" validate:"required,email"`
}

func (v *Validator) Invite(f InviteForm) (calendarapi.AddVisitorRequest, error) {
	if errs := v.check(f); errs != nil {
		return calendarapi.AddVisitorRequest{}, errs
	}
	return calendarapi.AddVisitorRequest{Email: f.Email}, nil
}
