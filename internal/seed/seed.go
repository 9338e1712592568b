// Package seed loads reference data (categories, departments and their locations) into a store.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/repository"
)

//go:embed reference_seed.yaml
var defaultSeed []byte

// File is the seed document.
type File struct {
	Categories  []string     `yaml:"categories"`
	Departments []Department `yaml:"departments"`
}

// Department lists a department and the locations it owns.
type Department struct {
	Name      string   `yaml:"name"`
	Locations []string `yaml:"locations"`
}

// Result counts rows created by Apply. Rows already present are skipped.
type Result struct {
	Categories  int
	Departments int
	Locations   int
}

// Default returns the bundled hospital reference data.
func Default() (*File, error) {
	return Parse(defaultSeed)
}

// Load reads a seed file, falling back to Default for an empty path.
func Load(path string) (*File, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a seed document.
func Parse(raw []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	for i, name := range file.Categories {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("category %d: name is required", i)
		}
	}
	for i, dept := range file.Departments {
		if strings.TrimSpace(dept.Name) == "" {
			return nil, fmt.Errorf("department %d: name is required", i)
		}
		for _, loc := range dept.Locations {
			if strings.TrimSpace(loc) == "" {
				return nil, fmt.Errorf("department %s: location name is required", dept.Name)
			}
		}
	}
	return &file, nil
}

// Apply inserts the rows of file that refs does not hold yet. It is safe to run repeatedly.
func Apply(ctx context.Context, refs repository.ReferenceRepository, file *File, logger *zap.Logger) (Result, error) {
	var result Result

	categories, err := existing(ctx, refs, domain.ReferenceCategory)
	if err != nil {
		return result, err
	}
	for _, name := range file.Categories {
		if _, ok := categories[key(nil, name)]; ok {
			continue
		}
		if _, err := create(ctx, refs, domain.ReferenceCategory, name, nil); err != nil {
			return result, err
		}
		result.Categories++
	}

	departments, err := existing(ctx, refs, domain.ReferenceDepartment)
	if err != nil {
		return result, err
	}
	locations, err := existing(ctx, refs, domain.ReferenceLocation)
	if err != nil {
		return result, err
	}
	for _, dept := range file.Departments {
		departmentID, ok := departments[key(nil, dept.Name)]
		if !ok {
			created, err := create(ctx, refs, domain.ReferenceDepartment, dept.Name, nil)
			if err != nil {
				return result, err
			}
			departmentID = created.ID
			result.Departments++
		}
		for _, name := range dept.Locations {
			if _, ok := locations[key(&departmentID, name)]; ok {
				continue
			}
			if _, err := create(ctx, refs, domain.ReferenceLocation, name, &departmentID); err != nil {
				return result, err
			}
			result.Locations++
		}
	}

	logger.Info("reference data seeded",
		zap.Int("categories", result.Categories),
		zap.Int("departments", result.Departments),
		zap.Int("locations", result.Locations),
	)
	return result, nil
}

func existing(ctx context.Context, refs repository.ReferenceRepository, kind domain.ReferenceKind) (map[string]string, error) {
	rows, err := refs.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	ids := make(map[string]string, len(rows))
	for _, row := range rows {
		ids[key(row.ParentID, row.Name)] = row.ID
	}
	return ids, nil
}

func create(ctx context.Context, refs repository.ReferenceRepository, kind domain.ReferenceKind, name string, parentID *string) (*domain.Reference, error) {
	ref := &domain.Reference{Kind: kind, Name: strings.TrimSpace(name), ParentID: parentID}
	if err := refs.Create(ctx, ref); err != nil {
		return nil, fmt.Errorf("create %s %q: %w", kind, ref.Name, err)
	}
	return ref, nil
}

func key(parentID *string, name string) string {
	name = strings.TrimSpace(name)
	if parentID == nil {
		return name
	}
	return *parentID + "/" + name
}
