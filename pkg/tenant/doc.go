// Package tenant carries the active tenant through a unit of work.
//
// The tenant lives in context.Context and nowhere else:
//
//	ctx, err := tenant.Establish(r.Context(), "school-a")
//	id, ok := tenant.Current(ctx)
//
// HTTP servers install Middleware with a Resolver (header, subdomain, query
// parameter, or a Chain of them). Jobs and CLI commands use Scoped.
package tenant
