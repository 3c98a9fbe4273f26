// Package server provides the HTTP surface of the settings service.
//
// The server resolves the caller's identity and tenant on every request
// and hands the rest to the handlers registered by the endpoints
// subpackage.
//
// # Server Setup
//
//	srv := server.NewServer(server.Deps{
//	    Resolver:       resolver,
//	    ReferenceStore: references,
//	    TenantsStore:   tenants,
//	    HealthStore:    health,
//	}, "0.0.0.0", "8080")
//	endpoints.RegisterAll(srv)
//	if err := srv.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Request Context
//
//   - identity: X-Settings-Actor and X-Settings-Privilege as forwarded by
//     the gateway, plus the peer address
//   - tenant: from the configured tenant.Resolver (header, subdomain or query)
//   - rate limit: one token bucket per tenant when a RateLimiter is set
//
// # Endpoints
//
//   - /settings, /settings/{key}, /settings/{key}/entry
//   - /references/{list}, /references/{list}/{name}
//   - /tenants, /tenants/{id}
//   - /status, /metrics
package server
