package domain

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// StoreFilters narrows the public listing. Unset fields (empty strings, nil
// pointers) are omitted from the query string.
type StoreFilters struct {
	Status    StoreStatus `json:"status,omitempty" yaml:"status,omitempty"`
	Category  string      `json:"category,omitempty" yaml:"category,omitempty"`
	Search    string      `json:"search,omitempty" yaml:"search,omitempty"`
	OwnerID   *int64      `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`
	MinRating *float64    `json:"minRating,omitempty" yaml:"minRating,omitempty"`
	Page      *int        `json:"page,omitempty" yaml:"page,omitempty"`
	Limit     *int        `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Values serialises the set fields as query parameters. Free text is NFC
// normalised so composed and decomposed input search the same way.
func (f StoreFilters) Values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	if s := NormalizeText(f.Category); s != "" {
		v.Set("category", s)
	}
	if s := NormalizeText(f.Search); s != "" {
		v.Set("search", s)
	}
	if f.OwnerID != nil {
		v.Set("ownerId", strconv.FormatInt(*f.OwnerID, 10))
	}
	if f.MinRating != nil {
		v.Set("minRating", strconv.FormatFloat(*f.MinRating, 'f', -1, 64))
	}
	if f.Page != nil {
		v.Set("page", strconv.Itoa(*f.Page))
	}
	if f.Limit != nil {
		v.Set("limit", strconv.Itoa(*f.Limit))
	}
	return v
}

// Merge returns f with every field set in patch overriding f's value.
func (f StoreFilters) Merge(patch StoreFilters) StoreFilters {
	out := f
	if patch.Status != "" {
		out.Status = patch.Status
	}
	if patch.Category != "" {
		out.Category = patch.Category
	}
	if patch.Search != "" {
		out.Search = patch.Search
	}
	if patch.OwnerID != nil {
		out.OwnerID = patch.OwnerID
	}
	if patch.MinRating != nil {
		out.MinRating = patch.MinRating
	}
	if patch.Page != nil {
		out.Page = patch.Page
	}
	if patch.Limit != nil {
		out.Limit = patch.Limit
	}
	return out
}

// IsZero reports whether no filter is set.
func (f StoreFilters) IsZero() bool {
	return len(f.Values()) == 0
}

// NormalizeText trims s and converts it to Unicode NFC.
func NormalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
