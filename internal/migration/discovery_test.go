package migration

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"
)

func names(files []File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestDiscover_FiltersAndOrders(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"10_ten.sql", "2_two.sql", "1_one.sql", "README.md", "3_three.SQL", "notes.sql.bak"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("SELECT 1;\n"), 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	// directories are skipped even when they look like migrations
	if err := os.Mkdir(filepath.Join(dir, "4_dir.sql"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o750); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "0_nested.sql"), []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatalf("write nested: %v", err)
	}

	files, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	want := []string{"1_one.sql", "2_two.sql", "10_ten.sql"}
	if got := names(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("Discover() = %v, want %v", got, want)
	}
	if files[0].Path != filepath.Join(dir, "1_one.sql") {
		t.Errorf("Path = %s", files[0].Path)
	}
	text, err := files[2].Read()
	if err != nil || text != "SELECT 1;\n" {
		t.Errorf("Read() = %q, %v", text, err)
	}
}

func TestDiscover_Deterministic(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"003_c.sql", "001_a.sql", "002_b.sql", "020_t.sql", "100_h.sql"} {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o600); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	first, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Discover(dir)
		if err != nil {
			t.Fatalf("Discover: %v", err)
		}
		if !reflect.DeepEqual(names(first), names(again)) {
			t.Fatalf("order changed: %v vs %v", names(first), names(again))
		}
	}
}

func TestDiscover_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	_, err := Discover(dir)
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
	var de *DiscoveryError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not a *DiscoveryError", err)
	}
	if de.Dir != dir {
		t.Errorf("DiscoveryError.Dir = %s, want %s", de.Dir, dir)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("errors.Is(err, fs.ErrNotExist) = false for %v", err)
	}
}

func TestDiscover_EmptyDirArgument(t *testing.T) {
	var de *DiscoveryError
	if _, err := Discover(""); !errors.As(err, &de) {
		t.Fatalf("Discover(\"\") error = %v, want *DiscoveryError", err)
	}
}

func TestDiscoverFS(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/10_c.sql":  {Data: []byte("SELECT 10;")},
		"migrations/9_b.sql":   {Data: []byte("SELECT 9;")},
		"migrations/1_a.sql":   {Data: []byte("SELECT 1;")},
		"migrations/other.txt": {Data: []byte("x")},
	}
	files, err := DiscoverFS(fsys, "migrations")
	if err != nil {
		t.Fatalf("DiscoverFS: %v", err)
	}
	want := []string{"1_a.sql", "9_b.sql", "10_c.sql"}
	if got := names(files); !reflect.DeepEqual(got, want) {
		t.Fatalf("DiscoverFS() = %v, want %v", got, want)
	}
	text, err := files[2].Read()
	if err != nil || text != "SELECT 10;" {
		t.Errorf("Read() = %q, %v", text, err)
	}

	if _, err := DiscoverFS(fsys, "nope"); err == nil {
		t.Error("expected error for missing fs directory")
	}
}

func TestCompareNames(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"2_b.sql", "10_a.sql", -1},
		{"10_a.sql", "2_b.sql", 1},
		{"001_a.sql", "001_b.sql", -1},
		{"001_a.sql", "001_a.sql", 0},
		{"01_a.sql", "1_a.sql", -1},
		{"1_a.sql", "01_a.sql", 1},
		{"v2_x.sql", "v10_x.sql", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			if got := compareNames(tt.a, tt.b); got != tt.want {
				t.Errorf("compareNames(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSortFiles(t *testing.T) {
	files := []File{{Name: "10_a.sql"}, {Name: "1_a.sql"}, {Name: "01_a.sql"}, {Name: "2_a.sql"}}
	SortFiles(files)
	want := []string{"01_a.sql", "1_a.sql", "2_a.sql", "10_a.sql"}
	if got := names(files); !reflect.DeepEqual(got, want) {
		t.Errorf("SortFiles() = %v, want %v", got, want)
	}
}

func TestFile_ReadHostPath(t *testing.T) {
	p := filepath.Join(t.TempDir(), "001_a.sql")
	if err := os.WriteFile(p, []byte("SELECT 1;"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	text, err := File{Name: "001_a.sql", Path: p}.Read()
	if err != nil || text != "SELECT 1;" {
		t.Errorf("Read() = %q, %v", text, err)
	}
	if _, err := (File{Name: "x.sql", Path: p + ".missing"}).Read(); err == nil {
		t.Error("Read() of a missing file should fail")
	}
}
