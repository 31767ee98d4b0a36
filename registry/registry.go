// Package registry maps block device names (such as "vdb") to backing paths
// in a SQLite table and opens them for ssr.
package registry

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/luhtfiimanal/go-ssr"
)

const schema = `CREATE TABLE IF NOT EXISTS devices (
	name       TEXT PRIMARY KEY,
	path       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// Entry is one registered device.
type Entry struct {
	Name      string `db:"name" json:"name"`
	Path      string `db:"path" json:"path"`
	CreatedAt int64  `db:"created_at" json:"created_at"` // unix seconds
}

type Registry struct {
	db *sqlx.DB
}

// Open connects to the SQLite database at dsn (a file path or ":memory:")
// and creates the devices table if needed.
func Open(dsn string) (*Registry, error) {
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", dsn, err)
	}
	// one connection keeps ":memory:" databases shared and serialises writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create registry schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Register binds name to path, replacing any previous binding.
func (r *Registry) Register(name, path string) error {
	if name == "" || path == "" {
		return errors.New("registry: name and path must not be empty")
	}
	_, err := r.db.NamedExec(
		`INSERT OR REPLACE INTO devices (name, path, created_at) VALUES (:name, :path, :created_at)`,
		Entry{Name: name, Path: path, CreatedAt: time.Now().Unix()},
	)
	return err
}

// Lookup returns the path bound to name, or an error matching ssr.ErrNotFound.
func (r *Registry) Lookup(name string) (string, error) {
	var path string
	err := r.db.Get(&path, `SELECT path FROM devices WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("registry lookup %q: %w", name, ssr.ErrNotFound)
	}
	return path, err
}

// Remove drops name. Removing an unknown name is not an error.
func (r *Registry) Remove(name string) error {
	_, err := r.db.Exec(`DELETE FROM devices WHERE name = ?`, name)
	return err
}

// List returns all entries ordered by name.
func (r *Registry) List() ([]Entry, error) {
	var out []Entry
	err := r.db.Select(&out, `SELECT name, path, created_at FROM devices ORDER BY name`)
	return out, err
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Opener resolves names through a Registry and opens the resulting paths
// with Files.
type Opener struct {
	Registry *Registry
	Files    ssr.FileOpener
}

func (o Opener) Open(name string) (ssr.BlockDevice, error) {
	path, err := o.Registry.Lookup(name)
	if err != nil {
		return nil, err
	}
	return o.Files.Open(path)
}
