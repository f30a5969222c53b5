package domain

// Review is a customer review attached to a listing.
type Review struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	Reviewer    string `json:"reviewer"`
	ProductID   int64  `json:"productId,omitempty"`
}

type ReviewPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Rating      int    `json:"rating"`
	Reviewer    string `json:"reviewer"`
	ProductID   int64  `json:"productId,omitempty"`
}
