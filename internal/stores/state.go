package stores

import (
	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
)

// State is a snapshot of the stores slice.
type State struct {
	Items       []domain.Store      `json:"items"`
	CurrentItem *domain.Store       `json:"currentItem"`
	Loading     engine.LoadingState `json:"loading"`
	Error       string              `json:"error"`
	TotalCount  int                 `json:"totalCount"`
	CurrentPage int                 `json:"currentPage"`
	HasNextPage bool                `json:"hasNextPage"`

	CreateLoading bool `json:"createLoading"`
	UpdateLoading bool `json:"updateLoading"`
	DeleteLoading bool `json:"deleteLoading"`

	MyStores        []domain.Store `json:"myStores"`
	MyStoresLoading bool           `json:"myStoresLoading"`

	PendingStores        []domain.Store `json:"pendingStores"`
	PendingStoresLoading bool           `json:"pendingStoresLoading"`
	ApproveLoading       bool           `json:"approveLoading"`
	RejectLoading        bool           `json:"rejectLoading"`

	Filters       domain.StoreFilters `json:"filters"`
	SearchResults []domain.Store      `json:"searchResults"`
	SearchLoading bool                `json:"searchLoading"`
}

func initialState() State {
	return State{
		Items:         []domain.Store{},
		Loading:       engine.Idle,
		CurrentPage:   1,
		MyStores:      []domain.Store{},
		PendingStores: []domain.Store{},
		SearchResults: []domain.Store{},
	}
}

func (s State) clone() State {
	s.Items = cloneStores(s.Items)
	s.MyStores = cloneStores(s.MyStores)
	s.PendingStores = cloneStores(s.PendingStores)
	s.SearchResults = cloneStores(s.SearchResults)
	if s.CurrentItem != nil {
		c := cloneStore(*s.CurrentItem)
		s.CurrentItem = &c
	}
	return s
}

func cloneStores(in []domain.Store) []domain.Store {
	out := make([]domain.Store, len(in))
	for i := range in {
		out[i] = cloneStore(in[i])
	}
	return out
}

func cloneStore(st domain.Store) domain.Store {
	if st.Owner != nil {
		o := *st.Owner
		st.Owner = &o
	}
	if st.AverageRating != nil {
		r := *st.AverageRating
		st.AverageRating = &r
	}
	if st.TotalReviews != nil {
		n := *st.TotalReviews
		st.TotalReviews = &n
	}
	return st
}
