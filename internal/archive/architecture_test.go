package archive

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyFacadeWrapsArchiveDrivers ensures that only this package imports
// the concrete archive driver packages. Other packages must depend on
// archive.Store; the shared core package is exempt since the drivers
// themselves implement its interface.
func TestOnlyFacadeWrapsArchiveDrivers(t *testing.T) {
	driverPrefix := "domaincore/internal/archive/"
	corePath := "domaincore/internal/archive/core"
	facadePath := "domaincore/internal/archive"

	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "domaincore/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	seen := make(map[string]struct{})
	for _, pkg := range pkgs {
		if pkg.PkgPath == facadePath || strings.HasPrefix(pkg.PkgPath, driverPrefix) {
			continue
		}
		for importPath := range pkg.Imports {
			if strings.HasPrefix(importPath, driverPrefix) && importPath != corePath {
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
			t.Errorf("forbidden import of archive driver package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of archive driver packages", len(violations))
	}
}
