// Package cache provides the resolved-settings cache used by the resolver.
//
// Two implementations are available: Memory for a single process and Redis
// for deployments with several replicas. Callers only ever store ciphertext
// in either of them.
package cache
