package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm/schema"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

var (
	sqlFileRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	createTableRe = regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?"?([a-z0-9_]+)"?`)
)

type migrationFile struct {
	name string
	body string
}

// ValidateDir checks file naming, unique versions and the goose Up/Down markers.
func ValidateDir(dir string) error {
	_, err := readMigrations(dir)
	return err
}

// CheckModelCoverage reports every persisted model whose table no migration
// in dir creates. It keeps the goose schema and the SQLite AutoMigrate path
// from drifting apart.
func CheckModelCoverage(dir string) error {
	files, err := readMigrations(dir)
	if err != nil {
		return err
	}
	created := map[string]bool{}
	for _, f := range files {
		for _, m := range createTableRe.FindAllStringSubmatch(f.body, -1) {
			created[strings.ToLower(m[1])] = true
		}
	}

	cache := &sync.Map{}
	var missing []string
	for _, model := range models.All() {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		if err != nil {
			return fmt.Errorf("parse model %T: %w", model, err)
		}
		if !created[s.Table] {
			missing = append(missing, s.Table)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("no migration creates table(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

func readMigrations(dir string) ([]migrationFile, error) {
	fsys, root := source(dir)
	if fsys == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required")
		}
		fsys, root = os.DirFS(dir), "."
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := map[string]string{}
	var files []migrationFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", name, err)
		}
		body := string(b)
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(body, marker) {
				return nil, fmt.Errorf("migration %q missing %q", name, marker)
			}
		}
		files = append(files, migrationFile{name: name, body: body})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", dir)
	}
	return files, nil
}
