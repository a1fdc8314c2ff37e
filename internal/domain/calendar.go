package domain

// Calendar is a named collection of events owned by one user
type Calendar struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Owner       *User   `json:"owner,omitempty"`
	Visitors    []User  `json:"visitors,omitempty"`
	Events      []Event `json:"events,omitempty"`
	Tags        []Tag   `json:"tags,omitempty"`
}

// HasVisitor reports whether the user with the given id is among the visitors
func (c *Calendar) HasVisitor(userID int64) bool {
	for _, v := range c.Visitors {
		if v.ID == userID {
			return true
		}
	}
	return false
}

// IndexCalendar returns the position of the calendar with the given id, or -1
func IndexCalendar(calendars []Calendar, id string) int {
	for i := range calendars {
		if calendars[i].ID == id {
			return i
		}
	}
	return -1
}
