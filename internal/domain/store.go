package domain

import (
	"fmt"
	"time"
)

// StoreStatus is the moderation status of a store listing.
type StoreStatus string

const (
	StatusPending  StoreStatus = "PENDING"
	StatusApproved StoreStatus = "APPROVED"
	StatusRejected StoreStatus = "REJECTED"
)

// ParseStoreStatus accepts only the three moderation statuses.
func ParseStoreStatus(s string) (StoreStatus, error) {
	switch st := StoreStatus(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	default:
		return "", fmt.Errorf("invalid store status %q: must be one of PENDING, APPROVED, REJECTED", s)
	}
}

// OwnerSummary is the embedded owner block some store responses carry.
type OwnerSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Store is a marketplace listing.
type Store struct {
	ID            int64         `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Address       string        `json:"address"`
	Email         string        `json:"email,omitempty"`
	Image         string        `json:"image,omitempty"`
	Status        StoreStatus   `json:"status"`
	OwnerID       int64         `json:"ownerId"`
	Owner         *OwnerSummary `json:"owner,omitempty"`
	AverageRating *float64      `json:"averageRating,omitempty"`
	TotalReviews  *int          `json:"totalReviews,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type CreateStorePayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Address     string `json:"address"`
	Category    string `json:"category,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Website     string `json:"website,omitempty"`
	Image       string `json:"image,omitempty"`
}

// UpdateStorePayload is a partial update; nil fields are left untouched by
// the server and are not serialised.
type UpdateStorePayload struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Address     *string `json:"address,omitempty"`
	Category    *string `json:"category,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	Email       *string `json:"email,omitempty"`
	Website     *string `json:"website,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// Empty reports whether the patch would change nothing.
func (p UpdateStorePayload) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Address == nil &&
		p.Category == nil && p.Phone == nil && p.Email == nil &&
		p.Website == nil && p.Image == nil
}

type RejectPayload struct {
	Reason string `json:"reason,omitempty"`
}

type StatusPayload struct {
	Status StoreStatus `json:"status"`
}
