package endpoints

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/scope"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
)

// ReferenceResponse is one effective reference row.
type ReferenceResponse struct {
	ID        string         `json:"id"`
	List      string         `json:"list"`
	Name      string         `json:"name"`
	Scope     string         `json:"scope"`
	SortOrder int            `json:"sort_order"`
	Payload   model.Document `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ReferenceRequest is the body of PUT /references/{list}/{name}.
type ReferenceRequest struct {
	SortOrder int            `json:"sort_order"`
	Payload   model.Document `json:"payload"`
}

func RegisterReferencesEndpoints(s *server.Server) {
	references := s.ReferenceStore
	auditor := s.Auditor
	r := s.Router.PathPrefix("/references").Subrouter()

	// GET /references/{list}?limit=&offset=&order= - Effective rows
	r.HandleFunc("/{list}", handleListReferences(references)).Methods("GET")

	// PUT /references/{list}/{name} - Create or replace a row
	r.HandleFunc("/{list}/{name}", handleUpsertReference(references, auditor)).Methods("PUT")

	// DELETE /references/{list}/{name} - Remove a row
	r.HandleFunc("/{list}/{name}", handleDeleteReference(references, auditor)).Methods("DELETE")
}

func toReferenceResponse(e model.ReferenceEntry) ReferenceResponse {
	payload := e.Payload
	if payload == nil {
		payload = model.Document{}
	}
	return ReferenceResponse{
		ID:        e.ID,
		List:      e.ListCode,
		Name:      e.Name,
		Scope:     e.Scope().String(),
		SortOrder: e.SortOrder,
		Payload:   payload,
		UpdatedAt: e.UpdatedAt,
	}
}

func handleListReferences(references store.ReferenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := pathVar(r, "list")
		owner, err := requestScope(r, false)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		limit, err := queryInt(r, "limit")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		offset, err := queryInt(r, "offset")
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		order, err := scope.ParseOrder(r.URL.Query().Get("order"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		rows, err := references.ListEffective(r.Context(), list, owner, scope.Page{Limit: limit, Offset: offset, Order: order})
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		out := make([]ReferenceResponse, 0, len(rows))
		for _, row := range rows {
			out = append(out, toReferenceResponse(row))
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

func referenceEvent(r *http.Request, list, name string, owner model.Scope, op string, err error) audit.ReferenceEvent {
	ev := audit.ReferenceEvent{
		Actor:     identity.Actor(r.Context()),
		ClientIP:  identity.ClientIP(r.Context()),
		List:      list,
		Name:      name,
		Scope:     owner.String(),
		Operation: op,
		Success:   err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	return ev
}

func handleUpsertReference(references store.ReferenceStore, auditor audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, name := pathVar(r, "list"), pathVar(r, "name")
		owner, err := requestScope(r, true)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		var req ReferenceRequest
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err == nil && len(body) > 0 {
			err = json.Unmarshal(body, &req)
		}
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "body must be a JSON object with sort_order and payload")
			return
		}

		stored, err := references.UpsertReference(r.Context(), model.ReferenceEntry{
			ListCode:  list,
			Name:      name,
			TenantID:  owner.Column(),
			SortOrder: req.SortOrder,
			Payload:   req.Payload,
		})
		auditor.Log(referenceEvent(r, list, name, owner, "upsert", err))
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, toReferenceResponse(*stored))
	}
}

func handleDeleteReference(references store.ReferenceStore, auditor audit.Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, name := pathVar(r, "list"), pathVar(r, "name")
		owner, err := requestScope(r, true)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		existed, err := references.DeleteReference(r.Context(), list, name, owner)
		if err == nil && !existed {
			err = store.ErrNotFound
		}
		auditor.Log(referenceEvent(r, list, name, owner, "delete", err))
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
