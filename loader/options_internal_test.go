package loader

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestSplitSearchPath(t *testing.T) {
	sep := string(filepath.ListSeparator)
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"/a", []string{"/a"}},
		{"/a" + sep + "/b", []string{"/a", "/b"}},
		{"/a" + sep + sep + "/b" + sep, []string{"/a", "/b"}},
	}
	for _, tt := range tests {
		if got := splitSearchPath(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("splitSearchPath(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewAppliesOptions(t *testing.T) {
	paths := []string{"x", "y"}
	c := New(Options{SearchPaths: paths})
	paths[0] = "changed"

	if c.mmap {
		t.Error("Mmap false ignored")
	}
	if !slices.Equal(c.searchPaths, []string{"x", "y"}) {
		t.Errorf("searchPaths = %v", c.searchPaths)
	}
	if c.log == nil {
		t.Error("nil Logger did not fall back to the package logger")
	}
}

func TestDefaultOptionsMmapOptIn(t *testing.T) {
	if _, set := os.LookupEnv(envMmap); set {
		t.Skipf("%s set in the environment", envMmap)
	}
	if DefaultOptions().Mmap {
		t.Error("Mmap enabled without CILIUM_MMAP")
	}
}
