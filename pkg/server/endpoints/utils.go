package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/secrets"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
	"github.com/doodlesbykumbi/tenant-settings/pkg/settings"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// maxBodyBytes bounds request documents.
const maxBodyBytes = 1 << 20

var (
	errGlobalWriteForbidden = errors.New("global writes require X-Settings-Privilege: elevate")
	errBadScope             = errors.New(`scope must be "global" or empty`)
)

func respondWithError(w http.ResponseWriter, code int, payload interface{}) {
	respondWithJSON(w, code, map[string]interface{}{"error": payload})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// statusFor maps resolver and store errors to HTTP status codes.
// Decryption failures fall through to 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, settings.ErrInvalidScope),
		errors.Is(err, model.ErrEmptyTenantID),
		errors.Is(err, tenant.ErrInvalidTenantID),
		errors.Is(err, secrets.ErrMarkedValue):
		return http.StatusBadRequest
	case errors.Is(err, errGlobalWriteForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound), errors.Is(err, settings.ErrUnknownKey):
		return http.StatusNotFound
	case errors.Is(err, settings.ErrConflict), errors.Is(err, store.ErrTenantExists):
		return http.StatusConflict
	case store.IsStorageError(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondWithFailure writes err with its mapped status. Storage errors are
// reported without their driver detail.
func respondWithFailure(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusServiceUnavailable {
		msg = "storage unavailable"
	}
	respondWithError(w, code, msg)
}

// decodeDocument reads a JSON object body. A null or empty body is an
// empty document.
func decodeDocument(r *http.Request) (model.Document, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if len(body) == 0 {
		return model.Document{}, nil
	}
	var doc model.Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %w", err)
	}
	if doc == nil {
		doc = model.Document{}
	}
	return doc, nil
}

// requestScope is the scope a request addresses: the global scope for
// ?scope=global, the request tenant otherwise. Global writes need an
// elevated caller.
func requestScope(r *http.Request, write bool) (model.Scope, error) {
	switch r.URL.Query().Get("scope") {
	case "global":
		if write {
			id, _ := identity.Get(r.Context())
			if !id.IsElevated() {
				return model.Scope{}, errGlobalWriteForbidden
			}
		}
		return model.GlobalScope(), nil
	case "", "tenant":
		if id, ok := tenant.Current(r.Context()); ok {
			return model.TenantScope(id), nil
		}
		if write {
			return model.Scope{}, fmt.Errorf("%w: no tenant on request", settings.ErrInvalidScope)
		}
		return model.GlobalScope(), nil
	default:
		return model.Scope{}, fmt.Errorf("%w: %w", settings.ErrInvalidScope, errBadScope)
	}
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
