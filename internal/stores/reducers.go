package stores

import "github.com/roach88/storefront/internal/domain"

// ApplyUpdate replaces every copy of updated (matched by id) in the listing
// page, my stores, the moderation queue, search results and the detail view.
// Collections that do not hold the id are left as they are. The input state
// is not modified.
func ApplyUpdate(s State, updated domain.Store) State {
	s.Items = replaceByID(s.Items, updated)
	s.MyStores = replaceByID(s.MyStores, updated)
	s.PendingStores = replaceByID(s.PendingStores, updated)
	s.SearchResults = replaceByID(s.SearchResults, updated)
	if s.CurrentItem != nil && s.CurrentItem.ID == updated.ID {
		c := cloneStore(updated)
		s.CurrentItem = &c
	}
	return s
}

// ApplyRemoval drops id from every collection and clears the detail view if
// it shows id.
func ApplyRemoval(s State, id int64) State {
	s.Items = removeByID(s.Items, id)
	s.MyStores = removeByID(s.MyStores, id)
	s.PendingStores = removeByID(s.PendingStores, id)
	s.SearchResults = removeByID(s.SearchResults, id)
	if s.CurrentItem != nil && s.CurrentItem.ID == id {
		s.CurrentItem = nil
	}
	return s
}

// DropPending removes id from the moderation queue only.
func DropPending(s State, id int64) State {
	s.PendingStores = removeByID(s.PendingStores, id)
	return s
}

// Prepend puts a newly created store first in the listing page and in my
// stores.
func Prepend(s State, created domain.Store) State {
	s.Items = prepend(s.Items, created)
	s.MyStores = prepend(s.MyStores, created)
	return s
}

func replaceByID(in []domain.Store, updated domain.Store) []domain.Store {
	out := make([]domain.Store, len(in))
	for i := range in {
		if in[i].ID == updated.ID {
			out[i] = cloneStore(updated)
			continue
		}
		out[i] = in[i]
	}
	return out
}

func removeByID(in []domain.Store, id int64) []domain.Store {
	out := make([]domain.Store, 0, len(in))
	for _, st := range in {
		if st.ID != id {
			out = append(out, st)
		}
	}
	return out
}

func prepend(in []domain.Store, st domain.Store) []domain.Store {
	out := make([]domain.Store, 0, len(in)+1)
	out = append(out, cloneStore(st))
	return append(out, in...)
}
