// Package migrations exposes the embedded reauth schema per SQL dialect so a
// host can hand it to its own migrator.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	reauth "github.com/goliatone/go-reauth"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultLabel = "go-reauth"

	rootDir   = "data/sql/migrations"
	sqliteDir = "sqlite"
)

// Source is the migration set for one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Plan is what Register handed to the callback.
type Plan struct {
	Label    string
	Dialects []string
	Sources  []Source
}

type RegisterFunc func(ctx context.Context, dialect string, label string, fsys fs.FS) error

type Option func(*Plan)

func WithLabel(label string) Option {
	return func(p *Plan) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			p.Label = trimmed
		}
	}
}

// WithDialects restricts registration to the given dialects.
func WithDialects(dialects ...string) Option {
	return func(p *Plan) {
		if normalized := normalizeDialects(dialects); len(normalized) > 0 {
			p.Dialects = normalized
		}
	}
}

// WithSources replaces the embedded sources, mostly for hosts that ship a
// patched schema.
func WithSources(sources ...Source) Option {
	return func(p *Plan) {
		kept := make([]Source, 0, len(sources))
		for _, source := range sources {
			dialect := strings.TrimSpace(strings.ToLower(source.Dialect))
			if dialect == "" || source.FS == nil {
				continue
			}
			source.Dialect = dialect
			kept = append(kept, source)
		}
		if len(kept) > 0 {
			p.Sources = kept
		}
	}
}

// Sources returns the postgres and sqlite migration sets found in root, or in
// the embedded schema when root is nil. Every up file must have a down file.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = reauth.GetMigrationsFS()
	}
	base, basePath, err := locate(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, sqliteDir)
	if err != nil {
		return nil, fmt.Errorf("migrations: open sqlite directory: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: joinPath(basePath, sqliteDir), FS: sqliteFS},
	}
	for _, source := range sources {
		if err := checkPairs(source); err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// Register calls fn once per selected dialect with that dialect's migrations.
func Register(ctx context.Context, fn RegisterFunc, opts ...Option) (Plan, error) {
	plan := Plan{
		Label:    DefaultLabel,
		Dialects: []string{DialectPostgres, DialectSQLite},
	}
	if fn == nil {
		return plan, fmt.Errorf("migrations: register function is required")
	}
	sources, err := Sources(nil)
	if err != nil {
		return plan, err
	}
	plan.Sources = sources
	for _, opt := range opts {
		if opt != nil {
			opt(&plan)
		}
	}

	for _, source := range plan.Sources {
		if !slices.Contains(plan.Dialects, source.Dialect) {
			continue
		}
		if err := fn(ctx, source.Dialect, plan.Label, source.FS); err != nil {
			return plan, fmt.Errorf("migrations: register %s from %s: %w", source.Dialect, source.Path, err)
		}
	}
	return plan, nil
}

func locate(root fs.FS) (fs.FS, string, error) {
	if _, err := fs.Stat(root, rootDir); err == nil {
		sub, subErr := fs.Sub(root, rootDir)
		if subErr != nil {
			return nil, "", fmt.Errorf("migrations: open %s: %w", rootDir, subErr)
		}
		return sub, rootDir, nil
	}
	// A filesystem already rooted at the migrations directory.
	if matches, _ := fs.Glob(root, "*.up.sql"); len(matches) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", rootDir)
}

func checkPairs(source Source) error {
	ups, err := fs.Glob(source.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: list %s migrations: %w", source.Dialect, err)
	}
	if len(ups) == 0 {
		return fmt.Errorf("migrations: no %s migrations in %q", source.Dialect, source.Path)
	}
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		if _, err := fs.Stat(source.FS, down); err != nil {
			return fmt.Errorf("migrations: %s migration %s has no %s", source.Dialect, up, down)
		}
	}
	return nil
}

func normalizeDialects(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(strings.ToLower(value))
		if value == "" || slices.Contains(out, value) {
			continue
		}
		out = append(out, value)
	}
	return out
}

func joinPath(base string, dir string) string {
	if base == "." {
		return dir
	}
	return strings.TrimSuffix(base, "/") + "/" + dir
}
