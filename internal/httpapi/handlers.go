package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/roach88/marketplace/internal/audit"
	"github.com/roach88/marketplace/internal/ir"
	"github.com/roach88/marketplace/internal/registry"
)

type entryView struct {
	ir.Entry
	Event string `json:"event"`
}

func viewEntry(e ir.Entry) entryView {
	return entryView{Entry: e, Event: e.Kind.EventName()}
}

type marketView struct {
	Address   ir.Identity   `json:"address"`
	Deployer  ir.Identity   `json:"deployer"`
	Admins    []ir.Identity `json:"admins"`
	Owners    []ir.Identity `json:"owners"`
	StoresNum int           `json:"stores_num"`
}

type roleView struct {
	Address ir.Identity `json:"address"`
	Role    string      `json:"role"`
	Value   int         `json:"value"`
}

type storesView struct {
	Addresses []ir.Identity       `json:"addresses"`
	Stores    []registry.Metadata `json:"stores"`
}

type storeView struct {
	registry.Store
	Market ir.Identity `json:"market"`
	Dummy  uint64      `json:"dummy"`
}

type targetRequest struct {
	Target string `json:"target"`
}

type createStoreRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, marketView{
		Address:   s.market.Address(),
		Deployer:  s.market.Deployer(),
		Admins:    s.market.Members(ir.Administrator),
		Owners:    s.market.Members(ir.ApprovedStoreOwner),
		StoresNum: s.market.StoresNum(),
	})
}

func (s *Server) handleRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	role := s.market.Role(id)
	respond(w, r, http.StatusOK, roleView{Address: id, Role: role.String(), Value: int(role)})
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	addrs, meta := s.market.Stores()
	respond(w, r, http.StatusOK, storesView{Addresses: addrs, Stores: meta})
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	id, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	inst, err := s.market.StoreAt(id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, storeView{Store: inst.Record(), Market: inst.Market(), Dummy: inst.Dummy()})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	var since int64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), "since must be a non-negative integer")
			return
		}
		since = n
	}

	var kind ir.Kind
	if v := r.URL.Query().Get("kind"); v != "" {
		k, err := ir.ParseKind(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), err.Error())
			return
		}
		kind = k
	}

	views := []entryView{}
	for _, e := range s.market.Log().Since(since) {
		if kind != "" && e.Kind != kind {
			continue
		}
		views = append(views, viewEntry(e))
	}
	respond(w, r, http.StatusOK, views)
}

// handleNextEntry blocks until the next entry of ?kind= is appended.
// ?subject= narrows the watch to one user or store.
func (s *Server) handleNextEntry(w http.ResponseWriter, r *http.Request) {
	kind, err := ir.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), err.Error())
		return
	}

	var opts []audit.WatchOption
	if v := r.URL.Query().Get("subject"); v != "" {
		subject, err := ir.ParseIdentity(v)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), err.Error())
			return
		}
		opts = append(opts, audit.WithSubject(subject))
	}

	watch := s.market.Watch(kind, opts...)
	defer watch.Cancel()

	ctx, cancel := context.WithTimeout(r.Context(), s.pollTimeout)
	defer cancel()

	e, err := watch.Wait(ctx)
	switch {
	case err == nil:
		respond(w, r, http.StatusOK, viewEntry(e))
	case errors.Is(err, context.DeadlineExceeded):
		w.WriteHeader(http.StatusNoContent)
	default:
		// Client went away or the watch was cancelled; nothing to send.
		s.logger.Debug("long poll ended", "kind", kind, "error", err)
	}
}

func (s *Server) handleAddAdmin(w http.ResponseWriter, r *http.Request) {
	target, ok := bodyTarget(w, r)
	if !ok {
		return
	}
	s.respondEntry(w, r)(s.market.AddAdmin(r.Context(), requester(r), target))
}

func (s *Server) handleDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	target, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	s.respondEntry(w, r)(s.market.DeleteAdmin(r.Context(), requester(r), target))
}

func (s *Server) handleAddOwner(w http.ResponseWriter, r *http.Request) {
	target, ok := bodyTarget(w, r)
	if !ok {
		return
	}
	s.respondEntry(w, r)(s.market.AddApprovedStoreOwner(r.Context(), requester(r), target))
}

func (s *Server) handleDeleteOwner(w http.ResponseWriter, r *http.Request) {
	target, ok := pathIdentity(w, r)
	if !ok {
		return
	}
	s.respondEntry(w, r)(s.market.DeleteApprovedStoreOwner(r.Context(), requester(r), target))
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req createStoreRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), "invalid JSON body: "+err.Error())
		return
	}
	st, err := s.market.CreateStore(r.Context(), requester(r), req.Name)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusCreated, st)
}

func (s *Server) respondEntry(w http.ResponseWriter, r *http.Request) func(ir.Entry, error) {
	return func(e ir.Entry, err error) {
		if err != nil {
			respondErr(w, r, err)
			return
		}
		respond(w, r, http.StatusOK, viewEntry(e))
	}
}

func pathIdentity(w http.ResponseWriter, r *http.Request) (ir.Identity, bool) {
	id, err := ir.ParseIdentity(chi.URLParam(r, "addr"))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), err.Error())
		return ir.Identity{}, false
	}
	return id, true
}

func bodyTarget(w http.ResponseWriter, r *http.Request) (ir.Identity, bool) {
	var req targetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), "invalid JSON body: "+err.Error())
		return ir.Identity{}, false
	}
	id, err := ir.ParseIdentity(req.Target)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, string(ir.ErrCodeInvalidArgument), err.Error())
		return ir.Identity{}, false
	}
	return id, true
}
