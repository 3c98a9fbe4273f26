package tenant

import (
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// DefaultHeader carries the tenant id on API requests.
const DefaultHeader = "X-Tenant-ID"

var (
	// ErrInvalidTenantID is returned by resolvers for ids that cannot be
	// tenant identifiers.
	ErrInvalidTenantID = errors.New("invalid tenant id")

	validID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)
)

// Resolver derives the tenant id for a request. It returns "" with a nil
// error when the request carries no tenant.
type Resolver interface {
	Resolve(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, error)

func (f ResolverFunc) Resolve(r *http.Request) (string, error) {
	return f(r)
}

// ValidID reports whether id can name a tenant.
func ValidID(id string) bool {
	return validID.MatchString(id)
}

func checkID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", nil
	}
	if !validID.MatchString(id) {
		return "", ErrInvalidTenantID
	}
	return id, nil
}

// HeaderResolver reads the tenant id from a request header.
func HeaderResolver(header string) Resolver {
	if header == "" {
		header = DefaultHeader
	}
	return ResolverFunc(func(r *http.Request) (string, error) {
		return checkID(r.Header.Get(header))
	})
}

// QueryResolver reads the tenant id from a query parameter.
func QueryResolver(param string) Resolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		return checkID(r.URL.Query().Get(param))
	})
}

// SubdomainResolver maps "<tenant>.<baseDomain>" hosts to a tenant id.
func SubdomainResolver(baseDomain string) Resolver {
	suffix := "." + strings.TrimPrefix(strings.ToLower(baseDomain), ".")
	return ResolverFunc(func(r *http.Request) (string, error) {
		host := strings.ToLower(r.Host)
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if !strings.HasSuffix(host, suffix) {
			return "", nil
		}
		sub := strings.TrimSuffix(host, suffix)
		if strings.Contains(sub, ".") {
			return "", ErrInvalidTenantID
		}
		return checkID(sub)
	})
}

// Chain tries resolvers in order and returns the first tenant found.
func Chain(resolvers ...Resolver) Resolver {
	return ResolverFunc(func(r *http.Request) (string, error) {
		for _, res := range resolvers {
			id, err := res.Resolve(r)
			if err != nil {
				return "", err
			}
			if id != "" {
				return id, nil
			}
		}
		return "", nil
	})
}

// Middleware establishes the resolved tenant on each request context.
// Requests without a tenant continue with none; unresolvable ones get 400.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.Resolve(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx, err := Establish(r.Context(), id)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
