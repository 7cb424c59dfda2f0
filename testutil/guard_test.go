package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStorageDriverImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"domaincore/internal/storage/memory", true},
		{"domaincore/internal/storage/postgres", true},
		{"domaincore/internal/storage", false},
		{"domaincore/pkg/object", false},
	}
	for _, c := range cases {
		if got := StorageDriverImportForbidden(c.in); got != c.want {
			t.Fatalf("StorageDriverImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestArchiveDriverImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"domaincore/internal/archive/s3", true},
		{"domaincore/internal/archive/fs", true},
		{"domaincore/internal/archive/core", false},
		{"domaincore/internal/archive", false},
	}
	for _, c := range cases {
		if got := ArchiveDriverImportForbidden(c.in); got != c.want {
			t.Fatalf("ArchiveDriverImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestInternalImportForbiddenPredicate(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"example.com/mod/internal/x", true},
		{"example.com/mod/pkg/x", false},
	}
	for _, c := range cases {
		if got := InternalImportForbidden(c.in); got != c.want {
			t.Fatalf("InternalImportForbidden(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

// TestAssertNoDirectImports exercises the success path by creating a tiny temp package with safe imports.
func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, func(string) bool { return false }, "none")
}
