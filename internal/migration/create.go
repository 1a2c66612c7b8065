package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/loykin/sqlmigrate/internal/common"
	"github.com/loykin/sqlmigrate/internal/constants"
)

const defaultPrefixWidth = 3

var (
	leadingDigits = regexp.MustCompile(`^(\d+)`)
	unsafeChars   = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slug turns a free-form description into a file name fragment.
func Slug(name string) string {
	s := unsafeChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "_")
	return strings.Trim(s, "_")
}

// Create writes an empty migration named <NNN>_<slug>.sql into dir, numbering
// it one past the highest numeric prefix already there. dir is created when
// missing. It returns the path of the new file.
func Create(dir, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("migrations directory is required")
	}
	slug := Slug(name)
	if slug == "" {
		return "", fmt.Errorf("invalid migration name %q", name)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	files, err := Discover(dir)
	if err != nil {
		return "", err
	}

	next, width := 1, defaultPrefixWidth
	for _, f := range files {
		m := leadingDigits.FindString(f.Name)
		if m == "" {
			continue
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if n >= next {
			next = n + 1
		}
		if len(m) > width {
			width = len(m)
		}
	}

	fileName := fmt.Sprintf("%0*d_%s%s", width, next, slug, constants.MigrationFileSuffix)
	p := filepath.Join(dir, fileName)

	// O_EXCL so an existing file is never overwritten
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("migration %s already exists", p)
		}
		return "", fmt.Errorf("failed to create %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	common.GetLogger().WithComponent("create").Info("migration created", "path", p)
	return p, nil
}
