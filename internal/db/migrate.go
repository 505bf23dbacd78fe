package db

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
)

// The schema ships inside the binary; a migrations_dir config entry swaps in
// files from disk, mainly for schema experiments against a scratch database.
//
//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies every .sql migration in name order.
func RunMigrations(db *sql.DB, dir string) error {
	fsys, root, err := migrationSource(dir)
	if err != nil {
		return err
	}
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if len(bytes.TrimSpace(data)) == 0 {
			continue
		}
		if _, err := db.Exec(string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
	}
	return nil
}

// migrationSource picks the disk directory when it exists, the embedded
// files otherwise.
func migrationSource(dir string) (fs.FS, string, error) {
	if dir != "" {
		if _, err := os.Stat(dir); err == nil {
			return os.DirFS(dir), ".", nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stat migrations dir: %w", err)
		}
	}
	return embeddedMigrations, "migrations", nil
}
