package domain

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// PageOptions are the list parameters accepted by paginated endpoints
type PageOptions struct {
	Page          int
	Limit         int
	SortField     string
	SortDirection SortDirection
	Search        string
}

// Page is one page of a paginated listing
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
