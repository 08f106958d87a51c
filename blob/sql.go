package blob

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/xo/dburl"
	_ "modernc.org/sqlite"
)

// SQLDialect captures the differences between the databases that can hold blobs.
type SQLDialect struct {
	Driver      string
	Placeholder func(n int) string
	CreateTable string // format string taking the table name
}

var (
	DialectSQLite = SQLDialect{
		Driver:      "sqlite",
		Placeholder: func(int) string { return "?" },
		CreateTable: "CREATE TABLE IF NOT EXISTS %[1]v (name TEXT PRIMARY KEY, body TEXT NOT NULL, modified_ns BIGINT NOT NULL, version BIGINT NOT NULL)",
	}
	DialectPostgres = SQLDialect{
		Driver:      "postgres",
		Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		CreateTable: "CREATE TABLE IF NOT EXISTS %[1]v (name VARCHAR(1024) PRIMARY KEY, body TEXT NOT NULL, modified_ns BIGINT NOT NULL, version BIGINT NOT NULL)",
	}
	DialectSQLServer = SQLDialect{
		Driver:      "sqlserver",
		Placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
		CreateTable: "IF OBJECT_ID(N'%[1]v', N'U') IS NULL CREATE TABLE %[1]v (name NVARCHAR(450) PRIMARY KEY, body NVARCHAR(MAX) NOT NULL, modified_ns BIGINT NOT NULL, version BIGINT NOT NULL)",
	}
)

// DialectForDriver maps a dburl driver name onto a dialect.
func DialectForDriver(driver string) (SQLDialect, error) {
	switch driver {
	case "sqlite3", "sqlite", "file":
		return DialectSQLite, nil
	case "postgres", "pgx":
		return DialectPostgres, nil
	case "sqlserver", "mssql":
		return DialectSQLServer, nil
	}
	return SQLDialect{}, fmt.Errorf("unsupported blob database driver %q", driver)
}

var validTableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLStore keeps blobs as rows of one table. Versions are an integer counter per row.
type SQLStore struct {
	db      *sql.DB
	dialect SQLDialect
	table   string
}

// OpenSQLStore parses dsn with dburl, opens the database and creates the blob table if needed.
func OpenSQLStore(ctx context.Context, dsn string, table string) (*SQLStore, error) {
	u, err := dburl.Parse(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing blob store DSN")
	}
	d, err := DialectForDriver(u.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, u.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %v database", u.OriginalScheme)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "error connecting to %v database", u.OriginalScheme)
	}
	return NewSQLStore(ctx, db, d, table)
}

// NewSQLStore uses an open database handle and creates the blob table if needed.
func NewSQLStore(ctx context.Context, db *sql.DB, d SQLDialect, table string) (*SQLStore, error) {
	if table == "" {
		table = "blobs"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid blob table name %q", table)
	}
	if d.Driver == DialectSQLite.Driver {
		db.SetMaxOpenConns(1) // sqlite allows one writer
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(d.CreateTable, table)); err != nil {
		return nil, errors.Wrapf(err, "error creating blob table %v", table)
	}
	return &SQLStore{db: db, dialect: d, table: table}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) ph(n int) string {
	return s.dialect.Placeholder(n)
}

// List filters with an escaped LIKE and then by byte prefix, so database collation cannot hide names.
func (s *SQLStore) List(ctx context.Context, prefix string) ([]Object, error) {
	q := fmt.Sprintf(`SELECT name, modified_ns FROM %v WHERE name LIKE %v ESCAPE '\' ORDER BY name`, s.table, s.ph(1))
	rows, err := s.db.QueryContext(ctx, q, likePrefix(prefix))
	if err != nil {
		return nil, errors.Wrapf(err, "error listing blobs with prefix %v", prefix)
	}
	defer rows.Close()
	retval := make([]Object, 0)
	for rows.Next() {
		var name string
		var ns int64
		if err := rows.Scan(&name, &ns); err != nil {
			return nil, errors.Wrap(err, "error scanning blob listing")
		}
		if !strings.HasPrefix(name, prefix) {
			continue // case-insensitive collations can match other names
		}
		retval = append(retval, Object{Name: name, LastModified: time.Unix(0, ns).UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error listing blobs")
	}
	sort.Slice(retval, func(i, j int) bool { return retval[i].Name < retval[j].Name })
	return retval, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `[`, `\[`)

// likePrefix returns a LIKE pattern matching names that start with prefix literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

func (s *SQLStore) ReadText(ctx context.Context, name string) (string, error) {
	text, _, err := s.ReadTextVersion(ctx, name)
	return text, err
}

func (s *SQLStore) ReadTextVersion(ctx context.Context, name string) (string, string, error) {
	q := fmt.Sprintf("SELECT body, version FROM %v WHERE name = %v", s.table, s.ph(1))
	var body string
	var version int64
	err := s.db.QueryRowContext(ctx, q, name).Scan(&body, &version)
	if err == sql.ErrNoRows {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", errors.Wrapf(err, "error reading blob %v", name)
	}
	return body, strconv.FormatInt(version, 10), nil
}

func (s *SQLStore) WriteText(ctx context.Context, name string, text string, overwrite bool) error {
	if overwrite {
		n, err := s.update(ctx, name, text, "")
		if err != nil || n > 0 {
			return err
		}
	}
	inserted, err := s.insert(ctx, name, text)
	if err != nil {
		return err
	}
	if inserted {
		return nil
	}
	if !overwrite {
		return ErrAlreadyExists
	}
	// Another writer created the row since the update above.
	_, err = s.update(ctx, name, text, "")
	return err
}

func (s *SQLStore) WriteTextIfVersion(ctx context.Context, name string, text string, version string) error {
	if version == "" {
		inserted, err := s.insert(ctx, name, text)
		if err != nil {
			return err
		}
		if !inserted {
			return ErrVersionConflict
		}
		return nil
	}
	n, err := s.update(ctx, name, text, version)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *SQLStore) Exists(ctx context.Context, name string) (bool, error) {
	q := fmt.Sprintf("SELECT COUNT(*) FROM %v WHERE name = %v", s.table, s.ph(1))
	var n int64
	if err := s.db.QueryRowContext(ctx, q, name).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "error checking blob %v", name)
	}
	return n > 0, nil
}

// insert creates name at version 1. It returns false when the row already exists,
// including when a concurrent writer wins the primary key.
func (s *SQLStore) insert(ctx context.Context, name string, text string) (bool, error) {
	q := fmt.Sprintf("INSERT INTO %v (name, body, modified_ns, version) VALUES (%v, %v, %v, 1)",
		s.table, s.ph(1), s.ph(2), s.ph(3))
	_, err := s.db.ExecContext(ctx, q, name, text, time.Now().UnixNano())
	if err == nil {
		return true, nil
	}
	exists, existsErr := s.Exists(ctx, name)
	if existsErr == nil && exists {
		return false, nil
	}
	return false, errors.Wrapf(err, "error inserting blob %v", name)
}

// update rewrites name and bumps its version. A non-empty version restricts the update to that version.
func (s *SQLStore) update(ctx context.Context, name string, text string, version string) (int64, error) {
	q := fmt.Sprintf("UPDATE %v SET body = %v, modified_ns = %v, version = version + 1 WHERE name = %v",
		s.table, s.ph(1), s.ph(2), s.ph(3))
	args := []interface{}{text, time.Now().UnixNano(), name}
	if version != "" {
		v, err := strconv.ParseInt(version, 10, 64)
		if err != nil {
			return 0, ErrVersionConflict
		}
		q += fmt.Sprintf(" AND version = %v", s.ph(4))
		args = append(args, v)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "error updating blob %v", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(err, "error reading rows affected for blob %v", name)
	}
	return n, nil
}
