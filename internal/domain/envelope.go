package domain

// Envelope is the uniform {success, message, data} wrapper every endpoint
// returns.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    *T     `json:"data,omitempty"`
}

// Pagination is the server-declared pagination block of list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// HasNext reports whether the server declared a page after this one.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// Page is the data block of paginated list endpoints.
type Page[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}
