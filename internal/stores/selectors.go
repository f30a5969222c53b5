package stores

import "github.com/roach88/storefront/internal/domain"

// Approved returns the approved listings of the current page.
func (s State) Approved() []domain.Store {
	return s.ByStatus(domain.StatusApproved)
}

// ByStatus returns the listings of the current page with the given status.
func (s State) ByStatus(status domain.StoreStatus) []domain.Store {
	var out []domain.Store
	for _, st := range s.Items {
		if st.Status == status {
			out = append(out, st)
		}
	}
	return out
}

// ByID looks id up in the listing page, then in my stores.
func (s State) ByID(id int64) (domain.Store, bool) {
	for _, coll := range [][]domain.Store{s.Items, s.MyStores} {
		for _, st := range coll {
			if st.ID == id {
				return st, true
			}
		}
	}
	return domain.Store{}, false
}

// OwnerStats summarises the caller's own stores.
type OwnerStats struct {
	Total         int     `json:"total"`
	Approved      int     `json:"approved"`
	Pending       int     `json:"pending"`
	Rejected      int     `json:"rejected"`
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// MyStoreStats counts my stores per status. AverageRating is the mean over
// all my stores, unrated ones counting as 0.
func (s State) MyStoreStats() OwnerStats {
	var out OwnerStats
	var ratingSum float64
	for _, st := range s.MyStores {
		out.Total++
		switch st.Status {
		case domain.StatusApproved:
			out.Approved++
		case domain.StatusPending:
			out.Pending++
		case domain.StatusRejected:
			out.Rejected++
		}
		if st.AverageRating != nil {
			ratingSum += *st.AverageRating
		}
		if st.TotalReviews != nil {
			out.TotalReviews += *st.TotalReviews
		}
	}
	if out.Total > 0 {
		out.AverageRating = ratingSum / float64(out.Total)
	}
	return out
}

// ModerationStats summarises the admin view. Pending counts the moderation
// queue; the other figures count the current listing page.
type ModerationStats struct {
	TotalStores    int `json:"totalStores"`
	ApprovedStores int `json:"approvedStores"`
	PendingStores  int `json:"pendingStores"`
	RejectedStores int `json:"rejectedStores"`
}

func (s State) AdminStats() ModerationStats {
	return ModerationStats{
		TotalStores:    len(s.Items),
		ApprovedStores: len(s.ByStatus(domain.StatusApproved)),
		PendingStores:  len(s.PendingStores),
		RejectedStores: len(s.ByStatus(domain.StatusRejected)),
	}
}
