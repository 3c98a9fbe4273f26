// Package identity carries the caller of a request through its context.
//
// Authentication is done by the gateway in front of the service, which
// forwards the caller in X-Settings-Actor and, for administrative calls,
// X-Settings-Privilege: elevate. An Identity records those together with
// the client address for the audit trail.
//
// # Basic Usage
//
//	id := identity.New("registrar@school-a").
//		WithPrivilege(identity.PrivilegeElevate).
//		WithRemoteIP(clientIP)
//
//	ctx = identity.Set(ctx, id)
//
//	id, ok := identity.Get(ctx)
//
// The identity is independent of the tenant binding in package tenant: an
// elevated operator may act on the global scope with no tenant bound.
package identity
