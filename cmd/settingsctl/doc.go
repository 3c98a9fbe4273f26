// Command settingsctl runs and administers the tenant settings service.
//
// Commands:
//   - server: serve the HTTP API
//   - db migrate|down|status: manage the schema
//   - tenant create|list|delete: manage tenants
//   - settings keys|get|set|reset: read and write documents
//   - defaults apply|watch: load global defaults from YAML
//   - secrets rotate: re-encrypt under the current data key
//   - data-key generate: print a new data key
//   - token issue: mint a gateway bearer token
//   - configuration show|check: inspect configuration
//   - wait: block until the server is ready
package main
