package domain

type Tag struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	Events      []Event   `json:"events,omitempty"`
	Calendar    *Calendar `json:"calendar,omitempty"`
}
