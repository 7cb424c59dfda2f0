package storage

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyConfigSelectsStorageDrivers ensures that only internal/config
// imports the concrete storage driver packages. Everything else must depend
// on the storage.Backend interface. Tests are excluded: they construct the
// memory driver directly.
func TestOnlyConfigSelectsStorageDrivers(t *testing.T) {
	driverPrefix := "domaincore/internal/storage/"
	allowed := map[string]bool{
		"domaincore/internal/config": true,
	}

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "domaincore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if allowed[pkg.PkgPath] || strings.HasPrefix(pkg.PkgPath, driverPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if strings.HasPrefix(importPath, driverPrefix) {
				seen[pkg.PkgPath+": "+importPath] = struct{}{}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of storage driver package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of storage driver packages", len(violations))
	}
}
