package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/tenant-settings/pkg/identity"
	"github.com/doodlesbykumbi/tenant-settings/pkg/tenant"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})

	// Background steps
	sc.Step(`^a settings server is running$`, s.aSettingsServerIsRunning)
	sc.Step(`^a tenant "([^"]*)" exists$`, s.aTenantExists)

	// Write steps
	sc.Step(`^an administrator sets the global "([^"]*)" to:$`, s.anAdministratorSetsGlobal)
	sc.Step(`^tenant "([^"]*)" sets "([^"]*)" to:$`, s.tenantSets)
	sc.Step(`^tenant "([^"]*)" replaces "([^"]*)" with:$`, s.tenantReplaces)
	sc.Step(`^tenant "([^"]*)" resets "([^"]*)"$`, s.tenantResets)
	sc.Step(`^an administrator deletes tenant "([^"]*)"$`, s.anAdministratorDeletesTenant)
	sc.Step(`^a non-administrator sets the global "([^"]*)" to:$`, s.aNonAdministratorSetsGlobal)

	// Read steps
	sc.Step(`^tenant "([^"]*)" resolves "([^"]*)"$`, s.tenantResolves)
	sc.Step(`^"([^"]*)" is resolved without a tenant$`, s.resolvedWithoutTenant)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the value should equal:$`, s.theValueShouldEqual)
	sc.Step(`^the value field "([^"]*)" should be "([^"]*)"$`, s.theValueFieldShouldBe)
	sc.Step(`^the value field "([^"]*)" should be null$`, s.theValueFieldShouldBeNull)

	// Storage steps
	sc.Step(`^the stored field "([^"]*)" of "([^"]*)" for tenant "([^"]*)" should be encrypted$`, s.theStoredFieldShouldBeEncrypted)
	sc.Step(`^no override of "([^"]*)" should be stored for tenant "([^"]*)"$`, s.noOverrideShouldBeStored)
}

type requestOptions struct {
	tenant   string
	elevated bool
	body     string
}

func (s *StepsContext) do(method, path string, opts requestOptions) error {
	var body io.Reader
	if opts.body != "" {
		body = bytes.NewBufferString(opts.body)
	}
	req, err := http.NewRequest(method, s.tc.ServerURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(identity.ActorHeader, "cucumber")
	if opts.tenant != "" {
		req.Header.Set(tenant.DefaultHeader, opts.tenant)
	}
	if opts.elevated {
		req.Header.Set(identity.PrivilegeHeader, "elevate")
	}

	s.response, err = s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	s.responseBody, err = io.ReadAll(s.response.Body)
	_ = s.response.Body.Close()
	return err
}

func (s *StepsContext) expectSuccess() error {
	if s.response.StatusCode >= 300 {
		return fmt.Errorf("request failed with %d: %s", s.response.StatusCode, s.responseBody)
	}
	return nil
}

// Background steps

func (s *StepsContext) aSettingsServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) aTenantExists(id string) error {
	body, _ := json.Marshal(map[string]string{"id": id})
	if err := s.do("POST", "/tenants", requestOptions{elevated: true, body: string(body)}); err != nil {
		return err
	}
	return s.expectSuccess()
}

// Write steps

func (s *StepsContext) anAdministratorSetsGlobal(key string, doc *godog.DocString) error {
	if err := s.do("PATCH", "/settings/"+key+"?scope=global", requestOptions{elevated: true, body: doc.Content}); err != nil {
		return err
	}
	return s.expectSuccess()
}

func (s *StepsContext) aNonAdministratorSetsGlobal(key string, doc *godog.DocString) error {
	return s.do("PATCH", "/settings/"+key+"?scope=global", requestOptions{body: doc.Content})
}

func (s *StepsContext) tenantSets(id, key string, doc *godog.DocString) error {
	return s.do("PATCH", "/settings/"+key, requestOptions{tenant: id, body: doc.Content})
}

func (s *StepsContext) tenantReplaces(id, key string, doc *godog.DocString) error {
	return s.do("PUT", "/settings/"+key, requestOptions{tenant: id, body: doc.Content})
}

func (s *StepsContext) tenantResets(id, key string) error {
	return s.do("DELETE", "/settings/"+key, requestOptions{tenant: id})
}

func (s *StepsContext) anAdministratorDeletesTenant(id string) error {
	return s.do("DELETE", "/tenants/"+id, requestOptions{elevated: true})
}

// Read steps

func (s *StepsContext) tenantResolves(id, key string) error {
	return s.do("GET", "/settings/"+key, requestOptions{tenant: id})
}

func (s *StepsContext) resolvedWithoutTenant(key string) error {
	return s.do("GET", "/settings/"+key, requestOptions{})
}

// Response steps

func (s *StepsContext) theResponseStatusShouldBe(expected int) error {
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) responseValue() (map[string]any, error) {
	var body struct {
		Value map[string]any `json:"value"`
	}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return nil, fmt.Errorf("failed to parse response %s: %w", s.responseBody, err)
	}
	return body.Value, nil
}

func (s *StepsContext) theValueShouldEqual(doc *godog.DocString) error {
	got, err := s.responseValue()
	if err != nil {
		return err
	}
	var want map[string]any
	if err := json.Unmarshal([]byte(doc.Content), &want); err != nil {
		return fmt.Errorf("bad expected document: %w", err)
	}
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("expected %v, got %v", want, got)
	}
	return nil
}

func (s *StepsContext) theValueFieldShouldBe(field, expected string) error {
	got, err := s.responseValue()
	if err != nil {
		return err
	}
	if v := fmt.Sprint(got[field]); v != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, v)
	}
	return nil
}

func (s *StepsContext) theValueFieldShouldBeNull(field string) error {
	got, err := s.responseValue()
	if err != nil {
		return err
	}
	v, present := got[field]
	if !present {
		return fmt.Errorf("expected %s to be present and null, it is absent", field)
	}
	if v != nil {
		return fmt.Errorf("expected %s to be null, got %v", field, v)
	}
	return nil
}

// Storage steps

func (s *StepsContext) storedValue(key, tenantID string) (map[string]any, bool, error) {
	var raw []string
	err := s.tc.DB.Raw(
		"SELECT value::text FROM config_entries WHERE setting_key = ? AND tenant_id = ?", key, tenantID,
	).Scan(&raw).Error
	if err != nil || len(raw) == 0 {
		return nil, false, err
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw[0]), &doc); err != nil {
		return nil, true, err
	}
	return doc, true, nil
}

func (s *StepsContext) theStoredFieldShouldBeEncrypted(field, key, tenantID string) error {
	doc, found, err := s.storedValue(key, tenantID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no override of %s stored for %s", key, tenantID)
	}
	v, _ := doc[field].(string)
	if !strings.HasPrefix(v, "enc:v1:") {
		return fmt.Errorf("expected %s to be encrypted at rest, got %v", field, doc[field])
	}
	return nil
}

func (s *StepsContext) noOverrideShouldBeStored(key, tenantID string) error {
	_, found, err := s.storedValue(key, tenantID)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("expected no override of %s for %s", key, tenantID)
	}
	return nil
}
