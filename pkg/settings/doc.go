// Package settings resolves tenant-aware settings documents.
//
// Every settings key may have one global row and one row per tenant. The
// effective document for a tenant is the global row with the tenant row
// laid over it at the top level:
//
//	global:  {"smtp_host": "mail.example.org", "smtp_port": 587, "from": {"name": "School"}}
//	tenant:  {"smtp_port": 2525, "from": {"address": "office@a.example"}}
//	result:  {"smtp_host": "mail.example.org", "smtp_port": 2525, "from": {"address": "office@a.example"}}
//
// Nested objects are replaced, not merged. A field the tenant sets to null
// stays null; a field it omits is inherited.
//
// The tenant comes from the request context (see package tenant). Writes
// with no tenant bound are rejected rather than applied to the global row;
// global writes name model.GlobalScope() explicitly through PersistScope.
//
// Fields listed in the Registry as encrypted are sealed before they reach
// the store or the cache and opened on the way out.
package settings
