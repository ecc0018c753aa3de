package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/halcyonops/halcyon/internal/alert"
)

const schemaPath = "../../schemas/service_v1.json"

const validManifest = `apiVersion: halcyon/v1
kind: ServiceManifest
metadata:
  service: checkout
  tier: critical
  team: payments-platform
spec:
  environment: production
  evaluationInterval: 5m
  slos:
    - id: checkout-availability
      name: Checkout availability
      target: 99.9
      window:
        duration: 30d
        type: rolling
      query: checkout_success_ratio
  alerting:
    autoRules: true
    rules:
      - id: checkout-burn-fast
        kind: BURN_RATE
        severity: CRITICAL
        threshold: 5
        enabled: true
  gatePolicy:
    warning: 20
    blocking: 10
    exceptions:
      - team: platform-team
        allow: always
  downstream:
    - name: payments
      criticality: critical
`

func writeManifests(t *testing.T, contents map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range contents {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadFromDirectory(t *testing.T) {
	dir := writeManifests(t, map[string]string{"checkout.yaml": validManifest})

	withFiles, errs := LoadFromDirectory(dir)
	if len(errs) != 0 {
		t.Fatalf("unexpected load errors: %v", errs)
	}
	if len(withFiles) != 1 {
		t.Fatalf("got %d manifests, want 1", len(withFiles))
	}

	m := withFiles[0].Manifest
	if m.Metadata.Service != "checkout" || m.Metadata.Tier != "critical" {
		t.Errorf("metadata = %+v", m.Metadata)
	}
	if len(m.Spec.SLOs) != 1 || m.Spec.SLOs[0].ID != "checkout-availability" {
		t.Errorf("slos = %+v", m.Spec.SLOs)
	}
	if m.Spec.GatePolicy == nil || m.Spec.GatePolicy.Blocking == nil || *m.Spec.GatePolicy.Blocking != 10 {
		t.Errorf("gate policy = %+v", m.Spec.GatePolicy)
	}
}

func TestLoadFromDirectorySkipsNonYAML(t *testing.T) {
	dir := writeManifests(t, map[string]string{
		"checkout.yaml": validManifest,
		"notes.txt":     "not a manifest",
	})

	withFiles, errs := LoadFromDirectory(dir)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(withFiles) != 1 {
		t.Errorf("got %d manifests, want 1", len(withFiles))
	}
}

func TestLoadFromDirectoryBadYAML(t *testing.T) {
	dir := writeManifests(t, map[string]string{"broken.yaml": "{{nope"})

	_, errs := LoadFromDirectory(dir)
	if len(errs) != 1 {
		t.Fatalf("expected one parse error, got %v", errs)
	}
}

func TestLoadFromDirectoryMultiDocument(t *testing.T) {
	second := `
apiVersion: halcyon/v1
kind: ServiceManifest
metadata:
  service: search
  tier: standard
spec:
  environment: production
  slos:
    - id: search-availability
      name: Search availability
      target: 99.5
      window:
        duration: 30d
        type: rolling
      query: "fixture:search"
`
	dir := writeManifests(t, map[string]string{
		"stack.yaml": validManifest + "\n---\n" + second + "\n---\n",
	})

	withFiles, errs := LoadFromDirectory(dir)
	if len(errs) != 0 {
		t.Fatalf("unexpected load errors: %v", errs)
	}
	if len(withFiles) != 2 {
		t.Fatalf("got %d manifests from multi-document file, want 2", len(withFiles))
	}
	if withFiles[0].Manifest.Metadata.Service != "checkout" || withFiles[1].Manifest.Metadata.Service != "search" {
		t.Errorf("services = %s, %s",
			withFiles[0].Manifest.Metadata.Service, withFiles[1].Manifest.Metadata.Service)
	}
	// Both documents share the source file.
	if withFiles[0].File != withFiles[1].File {
		t.Errorf("files differ: %s vs %s", withFiles[0].File, withFiles[1].File)
	}
}

func TestValidateDirectoryValid(t *testing.T) {
	validator, err := NewValidator(schemaPath)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	dir := writeManifests(t, map[string]string{"checkout.yaml": validManifest})
	if errs := validator.ValidateDirectory(dir); len(errs) != 0 {
		t.Errorf("valid manifest rejected: %v", errs)
	}
}

func TestValidateDirectorySchemaViolations(t *testing.T) {
	validator, err := NewValidator(schemaPath)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name     string
		mangle   func(string) string
		wantPath string
	}{
		{
			name:     "bad tier",
			mangle:   func(s string) string { return strings.Replace(s, "tier: critical", "tier: platinum", 1) },
			wantPath: "tier",
		},
		{
			name:     "bad window duration",
			mangle:   func(s string) string { return strings.Replace(s, "duration: 30d", "duration: monthly", 1) },
			wantPath: "duration",
		},
		{
			name:     "wrong kind",
			mangle:   func(s string) string { return strings.Replace(s, "kind: ServiceManifest", "kind: Pod", 1) },
			wantPath: "kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeManifests(t, map[string]string{"checkout.yaml": tt.mangle(validManifest)})
			errs := validator.ValidateDirectory(dir)
			if len(errs) == 0 {
				t.Fatal("expected validation errors")
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e.Path, tt.wantPath) {
					found = true
				}
			}
			if !found {
				t.Errorf("no error mentions %q: %v", tt.wantPath, errs)
			}
		})
	}
}

func TestValidateDirectoryDuplicateSLOIDs(t *testing.T) {
	validator, err := NewValidator(schemaPath)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	other := strings.Replace(validManifest, "service: checkout", "service: checkout-v2", 1)
	dir := writeManifests(t, map[string]string{
		"checkout.yaml":    validManifest,
		"checkout-v2.yaml": other,
	})

	errs := validator.ValidateDirectory(dir)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Message, "duplicate SLO ID") {
			found = true
		}
	}
	if !found {
		t.Errorf("duplicate SLO IDs across files not reported: %v", errs)
	}
}

func TestValidateDirectoryGatePolicyOrdering(t *testing.T) {
	validator, err := NewValidator(schemaPath)
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	inverted := strings.Replace(validManifest, "blocking: 10", "blocking: 50", 1)
	dir := writeManifests(t, map[string]string{"checkout.yaml": inverted})

	errs := validator.ValidateDirectory(dir)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Path, "gatePolicy.blocking") {
			found = true
		}
	}
	if !found {
		t.Errorf("blocking above warning not reported: %v", errs)
	}
}

func TestManifestSLOsFillService(t *testing.T) {
	dir := writeManifests(t, map[string]string{"checkout.yaml": validManifest})
	withFiles, _ := LoadFromDirectory(dir)

	slos := withFiles[0].Manifest.SLOs()
	if len(slos) != 1 {
		t.Fatalf("got %d slos", len(slos))
	}
	if slos[0].Service != "checkout" {
		t.Errorf("Service = %q, want filled from metadata", slos[0].Service)
	}
}

func TestManifestRulesAutoPlusExplicit(t *testing.T) {
	dir := writeManifests(t, map[string]string{"checkout.yaml": validManifest})
	withFiles, _ := LoadFromDirectory(dir)

	rules := withFiles[0].Manifest.Rules()

	// Critical tier contributes 4 auto rules, plus the explicit one.
	if len(rules) != 5 {
		t.Fatalf("got %d rules, want 5", len(rules))
	}
	last := rules[4]
	if last.ID != "checkout-burn-fast" {
		t.Errorf("explicit rule must come after the auto set, got %s", last.ID)
	}
	if last.Service != "checkout" {
		t.Errorf("explicit rule service = %q, want filled in", last.Service)
	}
	if last.SLOID != "*" {
		t.Errorf("explicit rule slo_id = %q, want wildcard default", last.SLOID)
	}
	if last.Kind != alert.KindBurnRate {
		t.Errorf("explicit rule kind = %v", last.Kind)
	}
}

func TestDownstreamNames(t *testing.T) {
	dir := writeManifests(t, map[string]string{"checkout.yaml": validManifest})
	withFiles, _ := LoadFromDirectory(dir)

	names := withFiles[0].Manifest.DownstreamNames()
	if len(names) != 1 || names[0] != "payments" {
		t.Errorf("DownstreamNames = %v", names)
	}
}
