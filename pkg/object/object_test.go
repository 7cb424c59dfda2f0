package object

import (
	"errors"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"/", "/", false},
		{"/a", "/a", false},
		{"/a/b/c", "/a/b/c", false},
		{"/a/b/", "/a/b", false},
		{"", "", true},
		{"a/b", "", true},
		{"/a//b", "", true},
		{"/a/./b", "", true},
		{"/a/../b", "", true},
	}
	for _, c := range cases {
		got, err := NormalizePath(c.in)
		if c.wantErr {
			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("NormalizePath(%q): want ValidationError, got %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NormalizePath(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("NormalizePath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParentPathAndName(t *testing.T) {
	cases := []struct {
		path   string
		parent string
		name   string
	}{
		{"/", "", "/"},
		{"/a", "/", "a"},
		{"/a/b", "/a", "b"},
		{"/a/b/c", "/a/b", "c"},
	}
	for _, c := range cases {
		if got := ParentPath(c.path); got != c.parent {
			t.Fatalf("ParentPath(%q) = %q, want %q", c.path, got, c.parent)
		}
		if got := PathName(c.path); got != c.name {
			t.Fatalf("PathName(%q) = %q, want %q", c.path, got, c.name)
		}
	}
}

func TestIsDirectChild(t *testing.T) {
	cases := []struct {
		parent, child string
		want          bool
	}{
		{"/", "/a", true},
		{"/a", "/a/b", true},
		{"/a", "/a/b/c", false},
		{"/a", "/b", false},
		{"", "/a", false},
	}
	for _, c := range cases {
		if got := IsDirectChild(c.parent, c.child); got != c.want {
			t.Fatalf("IsDirectChild(%q, %q) = %v, want %v", c.parent, c.child, got, c.want)
		}
	}
}

func TestRefString(t *testing.T) {
	if got := (Ref{ID: "x", Path: "/p"}).String(); got != "x" {
		t.Fatalf("id wins: got %q", got)
	}
	if got := (Ref{Path: "/p"}).String(); got != "/p" {
		t.Fatalf("path fallback: got %q", got)
	}
	if !(Ref{}).IsZero() || (Ref{ID: "x"}).IsZero() {
		t.Fatalf("IsZero misreports")
	}
}
