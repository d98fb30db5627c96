package bqexport

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/finance-health/internal/logger"
	"google.golang.org/api/iterator"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the SQL migrations shipped with the binary.
func Migrations() fs.FS {
	sub, _ := fs.Sub(embedded, "migrations")
	return sub
}

// Migration represents a single migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var migrationFile = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// ParseMigrations reads the migration files of dir in version order with
// the project and dataset placeholders substituted. Checksums are taken over
// the file content before substitution.
func ParseMigrations(dir fs.FS, project, dataset string) ([]Migration, error) {
	files, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationFile.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(dir, file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}
		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrator applies migrations to one dataset and records them in
// schema_migrations.
type Migrator struct {
	client    *bigquery.Client
	project   string
	dataset   string
	appliedBy string
}

func NewMigrator(client *bigquery.Client, project, dataset, appliedBy string) *Migrator {
	return &Migrator{client: client, project: project, dataset: dataset, appliedBy: appliedBy}
}

// Migrate applies every migration of dir not yet recorded and returns how
// many ran.
func (m *Migrator) Migrate(ctx context.Context, dir fs.FS) (int, error) {
	log := logger.FromContext(ctx)

	if err := m.run(ctx, m.ddlSchemaMigrations(), nil); err != nil {
		return 0, fmt.Errorf("Migrator.Migrate: ensure schema_migrations: %w", err)
	}

	migrations, err := ParseMigrations(dir, m.project, m.dataset)
	if err != nil {
		return 0, fmt.Errorf("Migrator.Migrate: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("found migration files")

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("Migrator.Migrate: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	count := 0
	for _, mig := range migrations {
		mlog := log.With().Int("version", mig.Version).Str("name", mig.Name).Logger()
		if done[mig.Version] {
			mlog.Debug().Msg("already applied")
			continue
		}
		if err := m.run(ctx, mig.SQL, nil); err != nil {
			return count, fmt.Errorf("Migrator.Migrate: execute %04d_%s: %w", mig.Version, mig.Name, err)
		}
		if err := m.record(ctx, mig); err != nil {
			return count, fmt.Errorf("Migrator.Migrate: record %04d_%s: %w", mig.Version, mig.Name, err)
		}
		mlog.Info().Msg("applied migration")
		count++
	}
	return count, nil
}

func (m *Migrator) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", m.project, m.dataset, name)
}

func (m *Migrator) ddlSchemaMigrations() string {
	return `CREATE TABLE IF NOT EXISTS ` + m.table("schema_migrations") + ` (
		version       INT64 NOT NULL,
		name          STRING NOT NULL,
		applied_at    TIMESTAMP NOT NULL,
		checksum      STRING,
		applied_by    STRING
	)`
}

// Applied lists the recorded migrations in version order.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	q := m.client.Query(`SELECT version, name, applied_at, checksum, applied_by FROM ` +
		m.table("schema_migrations") + ` ORDER BY version ASC`)
	it, err := q.Read(ctx)
	if err != nil {
		// A missing table means nothing was applied.
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}
		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func (m *Migrator) record(ctx context.Context, mig Migration) error {
	sql := `INSERT INTO ` + m.table("schema_migrations") + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)`
	return m.run(ctx, sql, []bigquery.QueryParameter{
		{Name: "version", Value: mig.Version},
		{Name: "name", Value: mig.Name},
		{Name: "checksum", Value: mig.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	})
}

func (m *Migrator) run(ctx context.Context, sql string, params []bigquery.QueryParameter) error {
	q := m.client.Query(sql)
	q.Parameters = params
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
