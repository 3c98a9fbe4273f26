package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
)

// UnmodifiedSinceHeader carries the updated_at of the entry a client last
// read, RFC 3339 with nanoseconds. Writes fail with 409 when the row has
// changed since.
const UnmodifiedSinceHeader = "If-Unmodified-Since"

// SettingResponse is the body of settings reads and writes.
type SettingResponse struct {
	Key   string         `json:"key"`
	Scope string         `json:"scope"`
	Value model.Document `json:"value"`
}

// EntryResponse is one stored row.
type EntryResponse struct {
	ID        string         `json:"id"`
	Key       string         `json:"key"`
	Scope     string         `json:"scope"`
	Value     model.Document `json:"value"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ResetResponse reports whether an override existed before a reset.
type ResetResponse struct {
	Key     string `json:"key"`
	Scope   string `json:"scope"`
	Existed bool   `json:"existed"`
}

func RegisterSettingsEndpoints(s *server.Server) {
	resolver := s.Resolver
	r := s.Router.PathPrefix("/settings").Subrouter()

	// GET /settings - Registered keys
	r.HandleFunc("", handleListKeys(resolver)).Methods("GET")

	// GET /settings/{key}/entry - Exact stored row
	r.HandleFunc("/{key}/entry", handleGetEntry(resolver)).Methods("GET")

	// GET /settings/{key} - Effective document for the request tenant
	r.HandleFunc("/{key}", handleResolve(resolver)).Methods("GET")

	// PATCH /settings/{key} - Merge fields into the override
	r.HandleFunc("/{key}", handlePersist(resolver, false)).Methods("PATCH")

	// PUT /settings/{key} - Replace the override
	r.HandleFunc("/{key}", handlePersist(resolver, true)).Methods("PUT")

	// DELETE /settings/{key} - Remove the override
	r.HandleFunc("/{key}", handleReset(resolver)).Methods("DELETE")
}

// pathVar returns the unescaped route variable; the router matches on the
// encoded path.
func pathVar(r *http.Request, name string) string {
	raw := mux.Vars(r)[name]
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func handleListKeys(resolver *settings.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string][]string{"keys": resolver.Keys()})
	}
}

func handleResolve(resolver *settings.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := pathVar(r, "key")
		owner, err := requestScope(r, false)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		doc, err := resolver.ResolveScope(r.Context(), key, owner)
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, SettingResponse{Key: key, Scope: owner.String(), Value: doc})
	}
}

func handlePersist(resolver *settings.Resolver, replace bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := pathVar(r, "key")
		owner, err := requestScope(r, true)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		values, err := decodeDocument(r)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		var since *time.Time
		if raw := r.Header.Get(UnmodifiedSinceHeader); raw != "" {
			t, perr := time.Parse(time.RFC3339Nano, raw)
			if perr != nil {
				respondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", UnmodifiedSinceHeader, perr))
				return
			}
			since = &t
		}

		var stored model.Document
		switch {
		case replace && since != nil:
			stored, err = resolver.ReplaceScopeIfUnmodified(r.Context(), key, owner, *since, values)
		case replace:
			stored, err = resolver.ReplaceScope(r.Context(), key, owner, values)
		case since != nil:
			stored, err = resolver.PersistScopeIfUnmodified(r.Context(), key, owner, *since, values)
		default:
			stored, err = resolver.PersistScope(r.Context(), key, owner, values)
		}
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, SettingResponse{Key: key, Scope: owner.String(), Value: stored})
	}
}

func handleReset(resolver *settings.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := pathVar(r, "key")
		owner, err := requestScope(r, true)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		existed, err := resolver.Reset(r.Context(), key, owner)
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, ResetResponse{Key: key, Scope: owner.String(), Existed: existed})
	}
}

func handleGetEntry(resolver *settings.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := pathVar(r, "key")
		owner, err := requestScope(r, false)
		if err != nil {
			respondWithFailure(w, err)
			return
		}

		entry, err := resolver.Entry(r.Context(), key, owner)
		if err != nil {
			respondWithFailure(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, EntryResponse{
			ID:        entry.ID,
			Key:       entry.Key,
			Scope:     entry.Scope().String(),
			Value:     entry.Value,
			UpdatedAt: entry.UpdatedAt,
		})
	}
}
