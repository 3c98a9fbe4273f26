package endpoints

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

var errTenantAdminForbidden = errors.New("tenant administration requires X-Settings-Privilege: elevate")

type TenantResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type TenantRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func RegisterTenantsEndpoints(s *server.Server) {
	tenants := s.TenantsStore
	resolver := s.Resolver
	auditor := s.Auditor

	r := s.Router.PathPrefix("/tenants").Subrouter()
	r.Use(requireElevated)

	// GET /tenants - List tenants
	r.HandleFunc("", handleListTenants(tenants)).Methods("GET")

	// POST /tenants - Create a tenant
	r.HandleFunc("", handleCreateTenant(tenants, auditor)).Methods("POST")

	// DELETE /tenants/{id} - Delete a tenant and everything it owns
	r.HandleFunc("/{id}", handleDeleteTenant(tenants, resolver, auditor)).Methods("DELETE")
}

func requireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := identity.Get(r.Context())
		if !id.IsElevated() {
			respondWithError(w, http.StatusForbidden, errTenantAdminForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func toTenantResponse(t model.Tenant) TenantResponse {
	return TenantResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}

func handleListTenants(tenants store.TenantsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := tenants.ListTenants(r.Context())
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		out := make([]TenantResponse, 0, len(list))
		for _, t := range list {
			out = append(out, toTenantResponse(t))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

func tenantEvent(r *http.Request, id, op string, err error) audit.TenantEvent {
	ev := audit.TenantEvent{
		Actor:     identity.Actor(r.Context()),
		TenantID:  id,
		Operation: op,
		Success:   err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	return ev
}

func handleCreateTenant(tenants store.TenantsStore, auditor audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req TenantRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "body must be a JSON object with id and name")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		if !tenant.ValidID(req.ID) {
			respondWithError(w, http.StatusBadRequest, tenant.ErrInvalidTenantID.Error())
			return
		}
		if req.Name == "" {
			req.Name = req.ID
		}

		t := &model.Tenant{ID: req.ID, Name: req.Name}
		err := tenants.CreateTenant(r.Context(), t)
		auditor.Log(tenantEvent(r, req.ID, "create", err))
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, toTenantResponse(*t))
	}
}

func handleDeleteTenant(tenants store.TenantsStore, resolver *settings.Resolver, auditor audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathVar(r, "id")
		err := tenants.DeleteTenant(r.Context(), id)
		auditor.Log(tenantEvent(r, id, "delete", err))
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		if err := resolver.ForgetTenant(r.Context(), id); err != nil {
			respondWithFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
