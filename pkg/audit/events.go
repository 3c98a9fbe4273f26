package audit

import (
	"fmt"
	"strconv"
	"strings"
)

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func severity(success bool) Severity {
	if success {
		return SeverityInfo
	}
	return SeverityWarning
}

func pastTense(op string) string {
	if strings.HasSuffix(op, "e") {
		return op + "d"
	}
	return op + "ed"
}

func withError(msg, errMsg string) string {
	if errMsg != "" {
		return msg + ": " + errMsg
	}
	return msg
}

// SettingsUpdateEvent is emitted for every persist of a settings key.
type SettingsUpdateEvent struct {
	Actor        string
	ClientIP     string
	Key          string
	Scope        string
	Fields       []string
	Success      bool
	ErrorMessage string
}

func (e SettingsUpdateEvent) MessageID() string {
	return "settings-update"
}

func (e SettingsUpdateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s updated %s (%s)", e.Actor, e.Key, e.Scope)
	}
	return withError(fmt.Sprintf("%s tried to update %s (%s)", e.Actor, e.Key, e.Scope), e.ErrorMessage)
}

func (e SettingsUpdateEvent) Severity() Severity {
	return severity(e.Success)
}

func (e SettingsUpdateEvent) Facility() int {
	return FacilityLocal0
}

func (e SettingsUpdateEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDActor:   {"user": e.Actor},
		SDIDSubject: {"key": e.Key, "scope": e.Scope, "fields": strings.Join(e.Fields, ",")},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": "update", "result": result(e.Success)},
	}
}

// SettingsResetEvent is emitted when an override is removed.
type SettingsResetEvent struct {
	Actor        string
	ClientIP     string
	Key          string
	Scope        string
	Existed      bool
	Success      bool
	ErrorMessage string
}

func (e SettingsResetEvent) MessageID() string {
	return "settings-reset"
}

func (e SettingsResetEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s reset %s (%s)", e.Actor, e.Key, e.Scope)
	}
	return withError(fmt.Sprintf("%s tried to reset %s (%s)", e.Actor, e.Key, e.Scope), e.ErrorMessage)
}

func (e SettingsResetEvent) Severity() Severity {
	return severity(e.Success)
}

func (e SettingsResetEvent) Facility() int {
	return FacilityLocal0
}

func (e SettingsResetEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDActor:   {"user": e.Actor},
		SDIDSubject: {"key": e.Key, "scope": e.Scope, "existed": strconv.FormatBool(e.Existed)},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": "reset", "result": result(e.Success)},
	}
}

// SettingsFetchFailureEvent records a resolve that could not be served.
// Successful reads are not audited.
type SettingsFetchFailureEvent struct {
	Actor        string
	ClientIP     string
	Key          string
	Scope        string
	ErrorMessage string
}

func (e SettingsFetchFailureEvent) MessageID() string {
	return "settings-fetch"
}

func (e SettingsFetchFailureEvent) Message() string {
	return withError(fmt.Sprintf("%s failed to fetch %s (%s)", e.Actor, e.Key, e.Scope), e.ErrorMessage)
}

func (e SettingsFetchFailureEvent) Severity() Severity {
	return SeverityError
}

func (e SettingsFetchFailureEvent) Facility() int {
	return FacilityAuthPriv
}

func (e SettingsFetchFailureEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDActor:   {"user": e.Actor},
		SDIDSubject: {"key": e.Key, "scope": e.Scope},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": "fetch", "result": "failure"},
	}
}

// ReferenceEvent is emitted when a reference list row changes.
type ReferenceEvent struct {
	Actor        string
	ClientIP     string
	List         string
	Name         string
	Scope        string
	Operation    string // upsert, delete
	Success      bool
	ErrorMessage string
}

func (e ReferenceEvent) MessageID() string {
	return "reference-" + e.Operation
}

func (e ReferenceEvent) Message() string {
	target := fmt.Sprintf("%s/%s (%s)", e.List, e.Name, e.Scope)
	if e.Success {
		return fmt.Sprintf("%s %s %s", e.Actor, pastTense(e.Operation), target)
	}
	return withError(fmt.Sprintf("%s tried to %s %s", e.Actor, e.Operation, target), e.ErrorMessage)
}

func (e ReferenceEvent) Severity() Severity {
	return severity(e.Success)
}

func (e ReferenceEvent) Facility() int {
	return FacilityLocal0
}

func (e ReferenceEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDActor:   {"user": e.Actor},
		SDIDSubject: {"list": e.List, "name": e.Name, "scope": e.Scope},
		SDIDClient:  {"ip": e.ClientIP},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
	}
}

// TenantEvent records tenant lifecycle changes.
type TenantEvent struct {
	Actor        string
	TenantID     string
	Operation    string // create, delete
	Success      bool
	ErrorMessage string
}

func (e TenantEvent) MessageID() string {
	return "tenant-" + e.Operation
}

func (e TenantEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s %s tenant %s", e.Actor, pastTense(e.Operation), e.TenantID)
	}
	return withError(fmt.Sprintf("%s tried to %s tenant %s", e.Actor, e.Operation, e.TenantID), e.ErrorMessage)
}

func (e TenantEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityWarning
}

func (e TenantEvent) Facility() int {
	return FacilityLocal0
}

func (e TenantEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDActor:   {"user": e.Actor},
		SDIDSubject: {"tenant": e.TenantID},
		SDIDAction:  {"operation": e.Operation, "result": result(e.Success)},
	}
}

// RotationEvent records a data-key rotation run.
type RotationEvent struct {
	Actor        string
	Scanned      int
	Rotated      int
	Success      bool
	ErrorMessage string
}

func (e RotationEvent) MessageID() string {
	return "secrets-rotate"
}

func (e RotationEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s re-encrypted %d of %d settings rows", e.Actor, e.Rotated, e.Scanned)
	}
	return withError(fmt.Sprintf("%s failed to rotate secrets after %d rows", e.Actor, e.Rotated), e.ErrorMessage)
}

func (e RotationEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e RotationEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RotationEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDActor: {"user": e.Actor},
		SDIDAction: {
			"operation": "rotate",
			"result":    result(e.Success),
			"scanned":   strconv.Itoa(e.Scanned),
			"rotated":   strconv.Itoa(e.Rotated),
		},
	}
}
