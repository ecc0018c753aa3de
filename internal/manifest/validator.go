package manifest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/halcyonops/halcyon/internal/slo"
)

// Validator handles manifest validation
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator creates a new validator with the given schema file
func NewValidator(schemaPath string) (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	schema, err := compiler.Compile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDirectory loads and validates all manifest files in a directory
func (v *Validator) ValidateDirectory(dirPath string) []ValidationError {
	withFiles, loadErrors := LoadFromDirectory(dirPath)

	var allErrors []ValidationError
	allErrors = append(allErrors, loadErrors...)

	if len(withFiles) == 0 {
		return allErrors
	}

	for _, wf := range withFiles {
		schemaErrors := v.validateSchema(wf.File, wf.Manifest)
		allErrors = append(allErrors, schemaErrors...)
	}

	allErrors = append(allErrors, v.validateExtraRules(withFiles)...)

	return allErrors
}

// validateSchema validates a single manifest against the JSON schema
func (v *Validator) validateSchema(file string, m *Manifest) []ValidationError {
	var errors []ValidationError

	// Round-trip through YAML to get a generic value for schema validation
	yamlBytes, err := yaml.Marshal(m)
	if err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to marshal manifest: %v", err),
		})
		return errors
	}

	var jsonData interface{}
	if err := yaml.Unmarshal(yamlBytes, &jsonData); err != nil {
		errors = append(errors, ValidationError{
			File:    file,
			Message: fmt.Sprintf("failed to convert to JSON: %v", err),
		})
		return errors
	}

	if err := v.schema.Validate(jsonData); err != nil {
		if validationErr, ok := err.(*jsonschema.ValidationError); ok {
			errors = append(errors, extractSchemaErrors(file, validationErr)...)
		} else {
			errors = append(errors, ValidationError{
				File:    file,
				Message: err.Error(),
			})
		}
	}

	return errors
}

// extractSchemaErrors converts JSON schema validation errors to ValidationErrors
func extractSchemaErrors(file string, err *jsonschema.ValidationError) []ValidationError {
	var errors []ValidationError

	path := strings.Join(err.InstanceLocation, ".")
	if path == "" {
		path = "(root)"
	}

	errors = append(errors, ValidationError{
		File:    file,
		Path:    path,
		Message: err.Error(),
	})

	for _, cause := range err.Causes {
		errors = append(errors, extractSchemaErrors(file, cause)...)
	}

	return errors
}

// validateExtraRules applies additional validation rules beyond JSON schema
func (v *Validator) validateExtraRules(withFiles []WithFile) []ValidationError {
	var errors []ValidationError

	// Check for duplicate services and SLO IDs across all manifests
	serviceSeen := make(map[string]string)
	sloSeen := make(map[string]string)
	for _, wf := range withFiles {
		service := wf.Manifest.Metadata.Service
		if prevFile, exists := serviceSeen[service]; exists {
			errors = append(errors, ValidationError{
				File:    wf.File,
				Path:    "metadata.service",
				Message: fmt.Sprintf("duplicate service %q (also in %s)", service, filepath.Base(prevFile)),
			})
		} else {
			serviceSeen[service] = wf.File
		}

		for i, s := range wf.Manifest.Spec.SLOs {
			if prevFile, exists := sloSeen[s.ID]; exists {
				errors = append(errors, ValidationError{
					File:    wf.File,
					Path:    fmt.Sprintf("spec.slos[%d].id", i),
					Message: fmt.Sprintf("duplicate SLO ID %q (also in %s)", s.ID, filepath.Base(prevFile)),
				})
			} else {
				sloSeen[s.ID] = wf.File
			}
		}

		errors = append(errors, validateManifestRules(wf.File, wf.Manifest)...)
	}

	return errors
}

// validateManifestRules checks per-manifest semantic constraints.
func validateManifestRules(file string, m *Manifest) []ValidationError {
	var errors []ValidationError

	for i, s := range m.Spec.SLOs {
		if _, err := slo.ParseDuration(s.Window.Duration); err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("spec.slos[%d].window.duration", i),
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		}
		target := s.Target
		if target > 1 {
			target = target / 100
		}
		if target <= 0 || target > 1 {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    fmt.Sprintf("spec.slos[%d].target", i),
				Message: fmt.Sprintf("target %v must be a fraction in (0,1] or percentage in (0,100]", s.Target),
			})
		}
	}

	if m.Spec.EvaluationInterval != "" {
		if _, err := slo.ParseDuration(m.Spec.EvaluationInterval); err != nil {
			errors = append(errors, ValidationError{
				File:    file,
				Path:    "spec.evaluationInterval",
				Message: fmt.Sprintf("invalid duration: %v", err),
			})
		}
	}

	// Gate policy thresholds: blocking must sit below warning.
	if p := m.Spec.GatePolicy; p != nil && p.Blocking != nil && *p.Blocking >= p.Warning {
		errors = append(errors, ValidationError{
			File:    file,
			Path:    "spec.gatePolicy.blocking",
			Message: fmt.Sprintf("blocking threshold (%.1f) must be below warning threshold (%.1f)", *p.Blocking, p.Warning),
		})
	}

	return errors
}
