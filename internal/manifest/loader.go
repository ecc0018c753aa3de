package manifest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadFromDirectory loads every manifest found under dirPath. A file
// may hold several YAML documents separated by "---"; each non-empty
// document becomes its own manifest. Parse failures are reported per
// file and do not stop the load.
func LoadFromDirectory(dirPath string) ([]WithFile, []ValidationError) {
	var manifests []WithFile
	var errs []ValidationError

	walkErr := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAMLFile(path) {
			return nil
		}
		loaded, err := loadManifestFile(path)
		if err != nil {
			errs = append(errs, ValidationError{
				File:    path,
				Message: fmt.Sprintf("failed to parse YAML: %v", err),
			})
			return nil
		}
		manifests = append(manifests, loaded...)
		return nil
	})
	if walkErr != nil {
		errs = append(errs, ValidationError{
			File:    dirPath,
			Message: fmt.Sprintf("failed to read directory: %v", walkErr),
		})
		return nil, errs
	}

	return manifests, errs
}

func isYAMLFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// loadManifestFile decodes every document in one YAML file. Documents
// that decode to nothing (comments, stray separators) are skipped.
func loadManifestFile(path string) ([]WithFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []WithFile
	dec := yaml.NewDecoder(f)
	for {
		var m Manifest
		if err := dec.Decode(&m); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, err
		}
		if m.Kind == "" && m.Metadata.Service == "" {
			continue
		}
		out = append(out, WithFile{Manifest: &m, File: path})
	}
}
