// Package audit provides the audit trail of settings changes.
//
// Events are written as RFC5424 syslog lines and, when AUDIT_DATABASE_URL
// is set, persisted to the audit_messages table.
//
// # Event Types
//
//   - SettingsUpdateEvent and SettingsResetEvent for writes
//   - SettingsFetchFailureEvent for reads that could not be served
//   - ReferenceEvent for reference list rows
//   - TenantEvent for tenant lifecycle
//   - RotationEvent for data-key rotation runs
//
// # Usage
//
//	audit.Log(audit.SettingsUpdateEvent{Actor: "admin", Key: "system.email", Scope: "tenant:school-a", Success: true})
//
// Components that emit events take an audit.Sink so tests can capture them;
// audit.Default() forwards to Log.
package audit
