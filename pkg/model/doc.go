// Package model defines the persisted types of the settings engine.
//
// # Core Models
//
//   - ConfigEntry: a settings document, global (nil tenant) or per tenant
//   - Tenant: a school served by the deployment
//   - ReferenceEntry: a row of a reference list with tenant-over-global fallback
//   - Document: the JSON object stored in value/payload columns
//   - Scope: the owner of a row, global or one tenant
//
// # Database Schema
//
//   - tenants
//   - config_entries: unique per (setting_key, tenant_id) via two partial indexes
//   - reference_entries: unique per (list_code, name, tenant_id) likewise
package model
