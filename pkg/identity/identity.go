package identity

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"

	ActorHeader     = "X-Settings-Actor"
	PrivilegeHeader = "X-Settings-Privilege"

	// Anonymous is the actor recorded when a request names none.
	Anonymous = "anonymous"
)

//go:generate go run github.com/dmarkham/enumer -type Privilege -trimprefix Privilege -transform lower -text -output privilege.gen.go

// Privilege is the privilege level a caller was granted by the gateway.
type Privilege int

const (
	PrivilegeNone Privilege = iota
	// PrivilegeElevate is required for global writes and tenant
	// administration.
	PrivilegeElevate
)

// ParsePrivilege reads a forwarded privilege value. Anything that is not a
// known privilege grants none.
func ParsePrivilege(s string) Privilege {
	p, err := PrivilegeString(strings.TrimSpace(s))
	if err != nil {
		return PrivilegeNone
	}
	return p
}

// Identity describes who issued a request. Authentication happens upstream;
// this only carries what the gateway forwarded so it can be audited.
type Identity struct {
	Actor     string
	Privilege Privilege
	RemoteIP  net.IP
}

// New returns an identity for actor; an empty actor becomes Anonymous.
func New(actor string) *Identity {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		actor = Anonymous
	}
	return &Identity{Actor: actor}
}

// WithPrivilege sets the privilege level.
func (i *Identity) WithPrivilege(privilege Privilege) *Identity {
	i.Privilege = privilege
	return i
}

// WithRemoteIP sets the remote IP address.
func (i *Identity) WithRemoteIP(ip net.IP) *Identity {
	i.RemoteIP = ip
	return i
}

// IsElevated reports whether the caller asked for elevated privileges,
// which global writes require.
func (i *Identity) IsElevated() bool {
	return i != nil && i.Privilege == PrivilegeElevate
}

// ClientIP is RemoteIP as a string, or "" when unknown.
func (i *Identity) ClientIP() string {
	if i == nil || i.RemoteIP == nil {
		return ""
	}
	return i.RemoteIP.String()
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}

// Actor returns the actor stored in ctx, or Anonymous.
func Actor(ctx context.Context) string {
	if id, ok := Get(ctx); ok && id != nil {
		return id.Actor
	}
	return Anonymous
}

// ClientIP returns the client address stored in ctx, or "".
func ClientIP(ctx context.Context) string {
	id, _ := Get(ctx)
	return id.ClientIP()
}

// FromRequest builds an Identity from the forwarded headers and the peer
// address of r.
func FromRequest(r *http.Request) *Identity {
	id := New(r.Header.Get(ActorHeader)).WithPrivilege(ParsePrivilege(r.Header.Get(PrivilegeHeader)))
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return id.WithRemoteIP(net.ParseIP(host))
}

// Middleware stores FromRequest(r) in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(Set(r.Context(), FromRequest(r))))
	})
}
