package migration

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/loykin/sqlmigrate/internal/constants"
	"github.com/maruel/natural"
)

// File is one discovered migration. Its text is only read when it is applied.
type File struct {
	// Name is the base file name and the key recorded in the tracking table.
	Name string
	// Path is where the file was found, for display.
	Path string

	fsys   fs.FS
	fsPath string
}

// Read returns the raw SQL text of the file.
func (f File) Read() (string, error) {
	var (
		b   []byte
		err error
	)
	if f.fsys != nil {
		b, err = fs.ReadFile(f.fsys, f.fsPath)
	} else {
		// #nosec G304 -- path comes from a directory listing of migration files
		b, err = os.ReadFile(filepath.Clean(f.Path))
	}
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Discover lists the *.sql files directly inside dir in natural order.
func Discover(dir string) ([]File, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, &DiscoveryError{Dir: dir, Err: errors.New("no migrations directory configured")}
	}
	files, err := DiscoverFS(os.DirFS(dir), ".")
	if err != nil {
		var de *DiscoveryError
		if errors.As(err, &de) {
			de.Dir = dir
		}
		return nil, err
	}
	for i := range files {
		files[i].Path = filepath.Join(dir, files[i].Name)
	}
	return files, nil
}

// DiscoverFS is Discover over an fs.FS, e.g. an embed.FS holding the migrations.
func DiscoverFS(fsys fs.FS, dir string) ([]File, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &DiscoveryError{Dir: dir, Err: err}
	}
	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, constants.MigrationFileSuffix) {
			continue
		}
		p := path.Join(dir, name)
		files = append(files, File{Name: name, Path: p, fsys: fsys, fsPath: p})
	}
	SortFiles(files)
	return files, nil
}

// SortFiles orders files by name in natural order.
func SortFiles(files []File) {
	slices.SortFunc(files, func(a, b File) int { return compareNames(a.Name, b.Name) })
}

// compareNames orders numeric runs by value ("2" before "10"). Names that are
// equal under that rule ("1_a.sql", "01_a.sql") fall back to byte order.
func compareNames(a, b string) int {
	switch {
	case natural.Less(a, b):
		return -1
	case natural.Less(b, a):
		return 1
	default:
		return strings.Compare(a, b)
	}
}
