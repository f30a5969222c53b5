package stores

import (
	"context"
	"sync"

	"github.com/roach88/storefront/internal/domain"
	"github.com/roach88/storefront/internal/engine"
	"github.com/roach88/storefront/internal/gateway"
)

// Operation names, as they appear in logs and the journal.
const (
	OpFetchStores        = "stores/fetchStores"
	OpFetchStoreByID     = "stores/fetchStoreById"
	OpCreateStore        = "stores/createStore"
	OpUpdateStore        = "stores/updateStore"
	OpDeleteStore        = "stores/deleteStore"
	OpFetchMyStores      = "stores/fetchMyStores"
	OpFetchPendingStores = "stores/fetchPendingStores"
	OpApproveStore       = "stores/approveStore"
	OpRejectStore        = "stores/rejectStore"
	OpUpdateStoreStatus  = "stores/updateStoreStatus"
	OpSearchStores       = "stores/searchStores"
)

// StoreAPI is the part of the gateway the slice calls for listings.
type StoreAPI interface {
	ListStores(ctx context.Context, f domain.StoreFilters) (*domain.Envelope[domain.Page[domain.Store]], error)
	GetStore(ctx context.Context, id int64) (*domain.Envelope[domain.Store], error)
	CreateStore(ctx context.Context, p domain.CreateStorePayload) (*domain.Envelope[domain.Store], error)
	UpdateStore(ctx context.Context, id int64, p domain.UpdateStorePayload) (*domain.Envelope[domain.Store], error)
	DeleteStore(ctx context.Context, id int64) (*domain.Envelope[domain.MessageData], error)
	ListMyStores(ctx context.Context, f domain.StoreFilters) (*domain.Envelope[domain.Page[domain.Store]], error)
}

// AdminAPI is the moderation part of the gateway.
type AdminAPI interface {
	ListPending(ctx context.Context) (*domain.Envelope[[]domain.Store], error)
	Approve(ctx context.Context, id int64) (*domain.Envelope[domain.Store], error)
	Reject(ctx context.Context, id int64, reason string) (*domain.Envelope[domain.Store], error)
	SetStatus(ctx context.Context, id int64, status domain.StoreStatus) (*domain.Envelope[domain.Store], error)
}

var (
	_ StoreAPI = (*gateway.Client)(nil)
	_ AdminAPI = gateway.AdminAPI{}
)

// Slice is the stores state container. Safe for concurrent use.
type Slice struct {
	api   StoreAPI
	admin AdminAPI
	rt    *engine.Runtime

	mu    sync.Mutex
	state State
	gens  engine.Generations

	version uint64
	hub     engine.Hub[State]
}

// New creates an empty stores slice.
func New(api StoreAPI, admin AdminAPI, rt *engine.Runtime) *Slice {
	if rt == nil {
		rt = engine.New()
	}
	return &Slice{
		api:   api,
		admin: admin,
		rt:    rt,
		state: initialState(),
		gens:  engine.Generations{},
	}
}

// State returns a snapshot of the current state.
func (s *Slice) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive a snapshot after every transition.
func (s *Slice) Subscribe(fn func(State)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

func (s *Slice) update(fn func(st *State) bool) bool {
	s.mu.Lock()
	if !fn(&s.state) {
		s.mu.Unlock()
		return false
	}
	s.version++
	snap, version := s.state.clone(), s.version
	s.mu.Unlock()

	s.hub.Publish(version, snap)
	return true
}

// task describes one orchestrator operation. kind is set for fetches that
// replace a collection wholesale; their results are discarded when a newer
// fetch of the same kind was dispatched meanwhile.
type task[T any] struct {
	name     string
	args     map[string]any
	kind     string
	fallback string
	start    func(st *State)
	call     func(ctx context.Context) (T, error)
	apply    func(st *State, v T)
	fail     func(st *State)
}

func run[T any](ctx context.Context, s *Slice, t task[T]) (T, error) {
	ctx, op := s.rt.Begin(ctx, t.name, t.args)
	s.update(func(st *State) bool {
		if t.kind != "" {
			s.gens.Mark(t.kind, op.Gen())
		}
		t.start(st)
		st.Error = ""
		return true
	})

	v, err := t.call(ctx)
	if err != nil && !engine.IsOpError(err, t.name) {
		err = engine.Fail(t.name, err, t.fallback)
	}

	applied := s.update(func(st *State) bool {
		if t.kind != "" && !s.gens.Current(t.kind, op.Gen()) {
			return false
		}
		if err != nil {
			t.fail(st)
			st.Error = err.Error()
			return true
		}
		t.apply(st, v)
		st.Error = ""
		return true
	})
	if !applied {
		op.Supersede()
		return v, err
	}
	op.Finish(err)
	return v, err
}

// data unwraps a successful envelope that must carry data.
func data[T any](op, fallback string, env *domain.Envelope[T], err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if !env.Success || env.Data == nil {
		return zero, rejected(op, env.Message, fallback)
	}
	return *env.Data, nil
}

func rejected(op, serverMsg, fallback string) error {
	if serverMsg == "" {
		serverMsg = fallback
	}
	return &engine.OpError{Op: op, Message: serverMsg}
}

// FetchStores loads one page of the public listing. Items and the pagination
// fields are replaced wholesale; HasNextPage is the server's page <
// totalPages.
func (s *Slice) FetchStores(ctx context.Context, f domain.StoreFilters) (domain.Page[domain.Store], error) {
	return run(ctx, s, task[domain.Page[domain.Store]]{
		name:     OpFetchStores,
		args:     filterArgs(f),
		kind:     "list",
		fallback: "Failed to fetch stores",
		start:    func(st *State) { st.Loading = engine.Pending },
		call: func(ctx context.Context) (domain.Page[domain.Store], error) {
			env, err := s.api.ListStores(ctx, f)
			return data(OpFetchStores, "Failed to fetch stores", env, err)
		},
		apply: func(st *State, p domain.Page[domain.Store]) {
			st.Loading = engine.Succeeded
			st.Items = cloneStores(p.Data)
			st.TotalCount = p.Pagination.Total
			st.CurrentPage = p.Pagination.Page
			st.HasNextPage = p.Pagination.HasNext()
		},
		fail: func(st *State) { st.Loading = engine.Failed },
	})
}

// FetchStoreByID loads the detail view.
func (s *Slice) FetchStoreByID(ctx context.Context, id int64) (domain.Store, error) {
	return run(ctx, s, task[domain.Store]{
		name:     OpFetchStoreByID,
		args:     map[string]any{"id": id},
		kind:     "detail",
		fallback: "Failed to fetch store",
		start:    func(st *State) { st.Loading = engine.Pending },
		call: func(ctx context.Context) (domain.Store, error) {
			env, err := s.api.GetStore(ctx, id)
			return data(OpFetchStoreByID, "Failed to fetch store", env, err)
		},
		apply: func(st *State, v domain.Store) {
			st.Loading = engine.Succeeded
			c := cloneStore(v)
			st.CurrentItem = &c
		},
		fail: func(st *State) { st.Loading = engine.Failed },
	})
}

// CreateStore submits a new listing. The server creates it PENDING; it is
// shown first in the listing page and in my stores.
func (s *Slice) CreateStore(ctx context.Context, p domain.CreateStorePayload) (domain.Store, error) {
	return run(ctx, s, task[domain.Store]{
		name:     OpCreateStore,
		args:     map[string]any{"name": p.Name},
		fallback: "Failed to create store",
		start:    func(st *State) { st.CreateLoading = true },
		call: func(ctx context.Context) (domain.Store, error) {
			env, err := s.api.CreateStore(ctx, p)
			return data(OpCreateStore, "Failed to create store", env, err)
		},
		apply: func(st *State, v domain.Store) {
			st.CreateLoading = false
			*st = Prepend(*st, v)
		},
		fail: func(st *State) { st.CreateLoading = false },
	})
}

func (s *Slice) UpdateStore(ctx context.Context, id int64, p domain.UpdateStorePayload) (domain.Store, error) {
	return run(ctx, s, task[domain.Store]{
		name:     OpUpdateStore,
		args:     map[string]any{"id": id},
		fallback: "Failed to update store",
		start:    func(st *State) { st.UpdateLoading = true },
		call: func(ctx context.Context) (domain.Store, error) {
			env, err := s.api.UpdateStore(ctx, id, p)
			return data(OpUpdateStore, "Failed to update store", env, err)
		},
		apply: func(st *State, v domain.Store) {
			st.UpdateLoading = false
			*st = ApplyUpdate(*st, v)
		},
		fail: func(st *State) { st.UpdateLoading = false },
	})
}

// DeleteStore removes a listing and every client-held copy of it.
func (s *Slice) DeleteStore(ctx context.Context, id int64) error {
	_, err := run(ctx, s, task[int64]{
		name:     OpDeleteStore,
		args:     map[string]any{"id": id},
		fallback: "Failed to delete store",
		start:    func(st *State) { st.DeleteLoading = true },
		call: func(ctx context.Context) (int64, error) {
			env, err := s.api.DeleteStore(ctx, id)
			if err != nil {
				return 0, err
			}
			if !env.Success {
				return 0, rejected(OpDeleteStore, env.Message, "Failed to delete store")
			}
			return id, nil
		},
		apply: func(st *State, id int64) {
			st.DeleteLoading = false
			*st = ApplyRemoval(*st, id)
		},
		fail: func(st *State) { st.DeleteLoading = false },
	})
	return err
}

// FetchMyStores replaces my stores wholesale.
func (s *Slice) FetchMyStores(ctx context.Context, f domain.StoreFilters) ([]domain.Store, error) {
	return run(ctx, s, task[[]domain.Store]{
		name:     OpFetchMyStores,
		args:     filterArgs(f),
		kind:     "mine",
		fallback: "Failed to fetch my stores",
		start:    func(st *State) { st.MyStoresLoading = true },
		call: func(ctx context.Context) ([]domain.Store, error) {
			env, err := s.api.ListMyStores(ctx, f)
			p, err := data(OpFetchMyStores, "Failed to fetch my stores", env, err)
			return nonNil(p.Data), err
		},
		apply: func(st *State, v []domain.Store) {
			st.MyStoresLoading = false
			st.MyStores = cloneStores(v)
		},
		fail: func(st *State) { st.MyStoresLoading = false },
	})
}

// FetchPendingStores replaces the moderation queue wholesale.
func (s *Slice) FetchPendingStores(ctx context.Context) ([]domain.Store, error) {
	return run(ctx, s, task[[]domain.Store]{
		name:     OpFetchPendingStores,
		kind:     "pending",
		fallback: "Failed to fetch pending stores",
		start:    func(st *State) { st.PendingStoresLoading = true },
		call: func(ctx context.Context) ([]domain.Store, error) {
			env, err := s.admin.ListPending(ctx)
			v, err := data(OpFetchPendingStores, "Failed to fetch pending stores", env, err)
			return nonNil(v), err
		},
		apply: func(st *State, v []domain.Store) {
			st.PendingStoresLoading = false
			st.PendingStores = cloneStores(v)
		},
		fail: func(st *State) { st.PendingStoresLoading = false },
	})
}

// ApproveStore approves a pending listing: it leaves the moderation queue
// and every other copy takes the new status.
func (s *Slice) ApproveStore(ctx context.Context, id int64) (domain.Store, error) {
	return run(ctx, s, task[domain.Store]{
		name:     OpApproveStore,
		args:     map[string]any{"id": id},
		fallback: "Failed to approve store",
		start:    func(st *State) { st.ApproveLoading = true },
		call: func(ctx context.Context) (domain.Store, error) {
			env, err := s.admin.Approve(ctx, id)
			return data(OpApproveStore, "Failed to approve store", env, err)
		},
		apply: func(st *State, v domain.Store) {
			st.ApproveLoading = false
			*st = DropPending(ApplyUpdate(*st, v), v.ID)
		},
		fail: func(st *State) { st.ApproveLoading = false },
	})
}

// RejectStore rejects a pending listing. reason may be empty.
func (s *Slice) RejectStore(ctx context.Context, id int64, reason string) (domain.Store, error) {
	args := map[string]any{"id": id}
	if reason != "" {
		args["reason"] = reason
	}
	return run(ctx, s, task[domain.Store]{
		name:     OpRejectStore,
		args:     args,
		fallback: "Failed to reject store",
		start:    func(st *State) { st.RejectLoading = true },
		call: func(ctx context.Context) (domain.Store, error) {
			env, err := s.admin.Reject(ctx, id, reason)
			return data(OpRejectStore, "Failed to reject store", env, err)
		},
		apply: func(st *State, v domain.Store) {
			st.RejectLoading = false
			*st = DropPending(ApplyUpdate(*st, v), v.ID)
		},
		fail: func(st *State) { st.RejectLoading = false },
	})
}

// UpdateStoreStatus sets any status directly. A listing moved out of
// PENDING leaves the moderation queue.
func (s *Slice) UpdateStoreStatus(ctx context.Context, id int64, status domain.StoreStatus) (domain.Store, error) {
	return run(ctx, s, task[domain.Store]{
		name:     OpUpdateStoreStatus,
		args:     map[string]any{"id": id, "status": string(status)},
		fallback: "Failed to update store status",
		start:    func(st *State) { st.Loading = engine.Pending },
		call: func(ctx context.Context) (domain.Store, error) {
			if _, err := domain.ParseStoreStatus(string(status)); err != nil {
				return domain.Store{}, &engine.OpError{Op: OpUpdateStoreStatus, Message: err.Error(), Err: err}
			}
			env, err := s.admin.SetStatus(ctx, id, status)
			return data(OpUpdateStoreStatus, "Failed to update store status", env, err)
		},
		apply: func(st *State, v domain.Store) {
			st.Loading = engine.Succeeded
			*st = ApplyUpdate(*st, v)
			if v.Status != domain.StatusPending {
				*st = DropPending(*st, v.ID)
			}
		},
		fail: func(st *State) { st.Loading = engine.Failed },
	})
}

// SearchStores runs a free-text search over approved listings. Results land
// in SearchResults; the listing page is not touched.
func (s *Slice) SearchStores(ctx context.Context, term string) ([]domain.Store, error) {
	f := domain.StoreFilters{Search: term, Status: domain.StatusApproved}
	return run(ctx, s, task[[]domain.Store]{
		name:     OpSearchStores,
		args:     map[string]any{"term": term},
		kind:     "search",
		fallback: "Failed to search stores",
		start:    func(st *State) { st.SearchLoading = true },
		call: func(ctx context.Context) ([]domain.Store, error) {
			env, err := s.api.ListStores(ctx, f)
			p, err := data(OpSearchStores, "Failed to search stores", env, err)
			return nonNil(p.Data), err
		},
		apply: func(st *State, v []domain.Store) {
			st.SearchLoading = false
			st.SearchResults = cloneStores(v)
		},
		fail: func(st *State) { st.SearchLoading = false },
	})
}

// SetFilters patches the active filters; unset fields of patch keep their
// current value.
func (s *Slice) SetFilters(patch domain.StoreFilters) {
	s.update(func(st *State) bool {
		st.Filters = st.Filters.Merge(patch)
		return true
	})
}

// ClearFilters resets the active filters to empty.
func (s *Slice) ClearFilters() {
	s.update(func(st *State) bool {
		st.Filters = domain.StoreFilters{}
		return true
	})
}

func (s *Slice) ClearSearchResults() {
	s.update(func(st *State) bool {
		st.SearchResults = []domain.Store{}
		return true
	})
}

func (s *Slice) ClearCurrentStore() {
	s.update(func(st *State) bool {
		st.CurrentItem = nil
		return true
	})
}

func (s *Slice) ClearError() {
	s.update(func(st *State) bool {
		st.Error = ""
		return true
	})
}

func nonNil(in []domain.Store) []domain.Store {
	if in == nil {
		return []domain.Store{}
	}
	return in
}

// filterArgs is the journal form of f: only set fields.
func filterArgs(f domain.StoreFilters) map[string]any {
	if f.IsZero() {
		return nil
	}
	args := make(map[string]any)
	for k, v := range f.Values() {
		args[k] = v[0]
	}
	return args
}
