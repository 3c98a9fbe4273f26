package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/doodlesbykumbi/tenant-settings/pkg/audit"
	"github.com/doodlesbykumbi/tenant-settings/pkg/cache"
	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/metrics"
	"github.com/doodlesbykumbi/tenant-settings/pkg/model"
	"github.com/doodlesbykumbi/tenant-settings/pkg/secrets"
	"github.com/doodlesbykumbi/tenant-settings/pkg/server/store"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

const (
	cachePrefix      = "settings:v1:"
	generationPrefix = "settings:gen:v1:"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithRegistry replaces DefaultRegistry().
func WithRegistry(reg *Registry) Option {
	return func(r *Resolver) { r.registry = reg }
}

// WithCache caches effective documents (still encrypted) for ttl. A
// non-positive ttl keeps entries until they are invalidated.
//
// Every write to a key also replaces a generation token for the key in c.
// A resolve only keeps the document it cached when the token is the one it
// saw before loading, so a resolve that overlaps a write cannot leave the
// pre-write document behind. When c is shared between replicas the token
// is shared too; the one remaining window is the shared cache evicting
// the token itself, which ttl bounds.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

func WithAuditor(a audit.Sink) Option {
	return func(r *Resolver) { r.auditor = a }
}

// Resolver answers "what are the effective settings for key" for the
// tenant bound to a context, and writes overrides back.
type Resolver struct {
	store    store.ConfigStore
	codec    *secrets.Codec
	registry *Registry
	cache    cache.Cache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
	auditor  audit.Sink
}

func NewResolver(st store.ConfigStore, codec *secrets.Codec, opts ...Option) *Resolver {
	r := &Resolver{
		store:    st,
		codec:    codec,
		registry: DefaultRegistry(),
		logger:   slog.Default(),
		auditor:  audit.SinkFunc(func(audit.Event) {}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Registry() *Registry {
	return r.registry
}

// Keys returns the registered settings keys.
func (r *Resolver) Keys() []string {
	return r.registry.Keys()
}

// ScopeFromContext is the tenant scope bound to ctx, or the global scope.
func ScopeFromContext(ctx context.Context) model.Scope {
	if id, ok := tenant.Current(ctx); ok {
		return model.TenantScope(id)
	}
	return model.GlobalScope()
}

func checkScope(owner model.Scope) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScope, err)
	}
	return nil
}

func cacheKey(key string, owner model.Scope) string {
	if id, ok := owner.TenantID(); ok {
		return cachePrefix + key + ":t:" + id
	}
	return cachePrefix + key + ":_global"
}

// Resolve returns the effective document for key as seen by the tenant
// bound to ctx, or the global default when none is bound.
func (r *Resolver) Resolve(ctx context.Context, key string) (model.Document, error) {
	return r.ResolveScope(ctx, key, ScopeFromContext(ctx))
}

// ResolveScope is Resolve for an explicit scope.
func (r *Resolver) ResolveScope(ctx context.Context, key string, owner model.Scope) (model.Document, error) {
	doc, err := r.resolve(ctx, key, owner)
	r.metrics.Resolve(key, resultLabel(err))
	if err != nil {
		var de *secrets.DecryptionError
		if errors.As(err, &de) {
			r.metrics.DecryptFailure(key)
		}
		if errors.As(err, &de) || store.IsStorageError(err) {
			r.logger.ErrorContext(ctx, "failed to resolve settings", "key", key, "scope", owner.String(), "error", err)
			r.auditor.Log(audit.SettingsFetchFailureEvent{
				Actor:        identity.Actor(ctx),
				ClientIP:     identity.ClientIP(ctx),
				Key:          key,
				Scope:        owner.String(),
				ErrorMessage: err.Error(),
			})
		}
		return nil, err
	}
	return doc, nil
}

func resultLabel(err error) string {
	var de *secrets.DecryptionError
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.As(err, &de):
		return metrics.ResultDecryptionError
	case errors.Is(err, ErrInvalidScope):
		return metrics.ResultInvalidScope
	case errors.Is(err, ErrUnknownKey):
		return metrics.ResultUnknownKey
	default:
		return metrics.ResultStorageError
	}
}

func (r *Resolver) resolve(ctx context.Context, key string, owner model.Scope) (model.Document, error) {
	if err := r.registry.Check(key); err != nil {
		return nil, err
	}
	if err := checkScope(owner); err != nil {
		return nil, err
	}
	merged, err := r.effective(ctx, key, owner)
	if err != nil {
		return nil, err
	}
	return r.codec.DecryptFields(key, merged, r.registry.EncryptedFields(key))
}

// effective returns the merged document with secrets still sealed, from
// the cache when possible. Cache failures fall back to the store.
func (r *Resolver) effective(ctx context.Context, key string, owner model.Scope) (model.Document, error) {
	ck := cacheKey(key, owner)
	if r.cache != nil {
		b, ok, err := r.cache.Get(ctx, ck)
		switch {
		case err != nil:
			r.logger.WarnContext(ctx, "settings cache read failed", "key", ck, "error", err)
		case ok:
			var doc model.Document
			if err := json.Unmarshal(b, &doc); err == nil && doc != nil {
				r.metrics.CacheHit()
				return doc, nil
			}
			r.logger.WarnContext(ctx, "discarding malformed cache entry", "key", ck)
		}
		r.metrics.CacheMiss()
	}

	var gen string
	cacheable := false
	if r.cache != nil {
		gen, cacheable = r.generation(ctx, key)
	}

	merged, err := r.load(ctx, key, owner)
	if err != nil {
		return nil, err
	}

	if cacheable {
		r.fill(ctx, key, ck, gen, merged)
	}
	return merged, nil
}

func generationKey(key string) string {
	return generationPrefix + key
}

// generation returns the current write generation of key. ok is false when
// it cannot be read, in which case the result must not be cached.
func (r *Resolver) generation(ctx context.Context, key string) (string, bool) {
	b, found, err := r.cache.Get(ctx, generationKey(key))
	if err != nil {
		r.logger.WarnContext(ctx, "settings cache read failed", "key", generationKey(key), "error", err)
		return "", false
	}
	if !found {
		return "", true
	}
	return string(b), true
}

// fill caches merged under ck when no write to key happened since gen was
// read. A write that lands between the check and the Set is caught by the
// second check, which takes the entry back out.
func (r *Resolver) fill(ctx context.Context, key, ck, gen string, merged model.Document) {
	if cur, ok := r.generation(ctx, key); !ok || cur != gen {
		return
	}
	b, err := json.Marshal(merged)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, ck, b, r.cacheTTL); err != nil {
		r.logger.WarnContext(ctx, "settings cache write failed", "key", ck, "error", err)
		return
	}
	if cur, ok := r.generation(ctx, key); !ok || cur != gen {
		if err := r.cache.Delete(ctx, ck); err != nil {
			r.logger.WarnContext(ctx, "settings cache delete failed", "key", ck, "error", err)
		}
	}
}

func (r *Resolver) load(ctx context.Context, key string, owner model.Scope) (model.Document, error) {
	global, _, err := r.find(ctx, key, model.GlobalScope())
	if err != nil {
		return nil, err
	}
	if owner.IsGlobal() {
		return global, nil
	}
	override, _, err := r.find(ctx, key, owner)
	if err != nil {
		return nil, err
	}
	return Merge(global, override), nil
}

// find returns the stored document of one row; a missing row is an empty
// document.
func (r *Resolver) find(ctx context.Context, key string, owner model.Scope) (model.Document, *model.ConfigEntry, error) {
	entry, err := r.store.FindOne(ctx, key, owner)
	if errors.Is(err, store.ErrNotFound) {
		return model.Document{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if entry.Value == nil {
		return model.Document{}, entry, nil
	}
	return entry.Value, entry, nil
}

type writeMode struct {
	since   *time.Time
	replace bool
}

// Persist merges values into the override of the tenant bound to ctx and
// returns the stored override with secrets decrypted. With no tenant bound
// it fails with ErrInvalidScope; global writes go through PersistScope.
func (r *Resolver) Persist(ctx context.Context, key string, values model.Document) (model.Document, error) {
	id, ok := tenant.Current(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no tenant bound to the context", ErrInvalidScope)
	}
	return r.PersistScope(ctx, key, model.TenantScope(id), values)
}

// PersistScope merges values into the row of owner. Empty values write
// nothing.
func (r *Resolver) PersistScope(ctx context.Context, key string, owner model.Scope, values model.Document) (model.Document, error) {
	return r.write(ctx, key, owner, values, writeMode{})
}

// PersistScopeIfUnmodified is PersistScope guarded by the UpdatedAt the
// caller last saw (from Entry). A zero since means the caller saw no row.
// The check and the write are separate statements, so it narrows rather
// than closes the race with other writers.
func (r *Resolver) PersistScopeIfUnmodified(ctx context.Context, key string, owner model.Scope, since time.Time, values model.Document) (model.Document, error) {
	return r.write(ctx, key, owner, values, writeMode{since: &since})
}

// ReplaceScope stores doc as the whole row of owner, dropping fields it
// does not name.
func (r *Resolver) ReplaceScope(ctx context.Context, key string, owner model.Scope, doc model.Document) (model.Document, error) {
	return r.write(ctx, key, owner, doc, writeMode{replace: true})
}

// ReplaceScopeIfUnmodified is ReplaceScope guarded like
// PersistScopeIfUnmodified.
func (r *Resolver) ReplaceScopeIfUnmodified(ctx context.Context, key string, owner model.Scope, since time.Time, doc model.Document) (model.Document, error) {
	return r.write(ctx, key, owner, doc, writeMode{since: &since, replace: true})
}

func (r *Resolver) write(ctx context.Context, key string, owner model.Scope, values model.Document, mode writeMode) (model.Document, error) {
	if err := r.registry.Check(key); err != nil {
		return nil, err
	}
	if err := checkScope(owner); err != nil {
		return nil, err
	}
	fields := r.registry.EncryptedFields(key)

	current, entry, err := r.find(ctx, key, owner)
	if err != nil {
		r.auditUpdate(ctx, key, owner, values, err)
		return nil, err
	}
	if mode.since != nil {
		changed := entry != nil && entry.UpdatedAt.After(*mode.since)
		vanished := entry == nil && !mode.since.IsZero()
		if changed || vanished {
			return nil, ErrConflict
		}
	}
	if len(values) == 0 && !mode.replace {
		return r.codec.DecryptFields(key, current, fields)
	}

	next := values.Clone()
	if !mode.replace {
		next = Merge(current, values)
	}
	if next == nil {
		next = model.Document{}
	}
	sealed, err := r.codec.EncryptFields(key, next, fields)
	if err != nil {
		r.auditUpdate(ctx, key, owner, values, err)
		return nil, err
	}
	stored, err := r.store.UpsertOne(ctx, key, owner, sealed)
	if err != nil {
		r.auditUpdate(ctx, key, owner, values, err)
		return nil, err
	}
	if err := r.invalidate(ctx, key, owner); err != nil {
		r.logger.ErrorContext(ctx, "settings cache invalidation failed", "key", key, "scope", owner.String(), "error", err)
		return nil, fmt.Errorf("invalidate cached %s: %w", key, err)
	}

	r.metrics.Persist(key, owner.IsGlobal())
	r.auditUpdate(ctx, key, owner, values, nil)
	r.logger.InfoContext(ctx, "settings persisted", "key", key, "scope", owner.String(), "fields", len(values))
	return r.codec.DecryptFields(key, stored.Value, fields)
}

func (r *Resolver) auditUpdate(ctx context.Context, key string, owner model.Scope, values model.Document, err error) {
	fields := make([]string, 0, len(values))
	for f := range values {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	ev := audit.SettingsUpdateEvent{
		Actor:    identity.Actor(ctx),
		ClientIP: identity.ClientIP(ctx),
		Key:      key,
		Scope:    owner.String(),
		Fields:   fields,
		Success:  err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
	}
	r.auditor.Log(ev)
}

// invalidate drops cached results that a write to (key, owner) can change.
// A global row feeds every tenant's result, so all of them go. The
// generation is replaced first so resolves still loading the old rows do
// not cache them.
func (r *Resolver) invalidate(ctx context.Context, key string, owner model.Scope) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.Set(ctx, generationKey(key), []byte(uuid.NewString()), 0); err != nil {
		return err
	}
	if owner.IsGlobal() {
		return r.cache.DeleteMatching(ctx, cachePrefix+key+":*")
	}
	return r.cache.Delete(ctx, cacheKey(key, owner))
}

// Reset deletes the row of owner so the scope inherits again. It reports
// whether a row existed.
func (r *Resolver) Reset(ctx context.Context, key string, owner model.Scope) (bool, error) {
	if err := r.registry.Check(key); err != nil {
		return false, err
	}
	if err := checkScope(owner); err != nil {
		return false, err
	}

	existed, err := r.store.DeleteOne(ctx, key, owner)
	ev := audit.SettingsResetEvent{
		Actor:    identity.Actor(ctx),
		ClientIP: identity.ClientIP(ctx),
		Key:      key,
		Scope:    owner.String(),
		Existed:  existed,
		Success:  err == nil,
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		r.auditor.Log(ev)
		return false, err
	}
	if err := r.invalidate(ctx, key, owner); err != nil {
		return existed, fmt.Errorf("invalidate cached %s: %w", key, err)
	}
	if existed {
		r.metrics.Reset(key, owner.IsGlobal())
	}
	r.auditor.Log(ev)
	return existed, nil
}

// Entry returns the exact row of owner with secrets decrypted, or
// store.ErrNotFound.
func (r *Resolver) Entry(ctx context.Context, key string, owner model.Scope) (*model.ConfigEntry, error) {
	if err := r.registry.Check(key); err != nil {
		return nil, err
	}
	if err := checkScope(owner); err != nil {
		return nil, err
	}
	entry, err := r.store.FindOne(ctx, key, owner)
	if err != nil {
		return nil, err
	}
	doc, err := r.codec.DecryptFields(key, entry.Value, r.registry.EncryptedFields(key))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		doc = model.Document{}
	}
	entry.Value = doc
	return entry, nil
}

// ForgetTenant drops every cached result of tenantID. Call it after the
// tenant's rows are deleted out from under the resolver.
func (r *Resolver) ForgetTenant(ctx context.Context, tenantID string) error {
	if r.cache == nil || tenantID == "" {
		return nil
	}
	for _, key := range r.registry.Keys() {
		if err := r.cache.Set(ctx, generationKey(key), []byte(uuid.NewString()), 0); err != nil {
			return fmt.Errorf("invalidate cached settings of tenant %s: %w", tenantID, err)
		}
	}
	if err := r.cache.DeleteMatching(ctx, cachePrefix+"*:t:"+tenantID); err != nil {
		return fmt.Errorf("invalidate cached settings of tenant %s: %w", tenantID, err)
	}
	return nil
}
