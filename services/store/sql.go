package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"sjsage522/retroconsolas/internal/market"
	"sjsage522/retroconsolas/logger"
	"sjsage522/retroconsolas/pkg/errors"
)

// Supported SQL drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type snapshotRow struct {
	Date      string `db:"date"`
	ScrapedAt string `db:"scraped_at"`
}

type statsRow struct {
	Date    string `db:"date"`
	Console string `db:"console"`
	market.ConsoleStats
}

const insertStats = `INSERT INTO console_stats (
	date, console, total_listings, available_count, sold_count, reserved_count,
	avg_offer_price, median_offer_price, min_offer_price, max_offer_price,
	avg_sold_price, median_sold_price
) VALUES (
	:date, :console, :total_listings, :available_count, :sold_count, :reserved_count,
	:avg_offer_price, :median_offer_price, :min_offer_price, :max_offer_price,
	:avg_sold_price, :median_sold_price
)`

const selectStats = `SELECT
	date, console, total_listings, available_count, sold_count, reserved_count,
	avg_offer_price, median_offer_price, min_offer_price, max_offer_price,
	avg_sold_price, median_sold_price
FROM console_stats ORDER BY date, console`

// SQLStore keeps snapshots in PostgreSQL or SQLite, one row per console
// and date
type SQLStore struct {
	db     *sqlx.DB
	driver string
	log    *logger.Logger
}

// NewSQLStore connects to the database and applies pending migrations
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, errors.NewConfiguration(fmt.Sprintf("unsupported stats driver %q", driver), nil)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.NewPersistence(driver, "failed to open database", err)
	}
	if driver == DriverSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewPersistence(driver, "failed to connect to database", err)
	}

	if err := migrate(db.DB, driver); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLStore{db: db, driver: driver, log: logger.ForStore()}, nil
}

func migrate(db *sql.DB, driver string) error {
	dir, err := fs.Sub(migrationsFS, "migrations/"+driver)
	if err != nil {
		return errors.NewPersistence(driver, "missing migrations", err)
	}
	goose.SetBaseFS(dir)

	dialect := "postgres"
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return errors.NewPersistence(driver, "set dialect", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return errors.NewPersistence(driver, "run migrations", err)
	}
	return nil
}

// Save replaces every row of snap's date inside one transaction
func (s *SQLStore) Save(ctx context.Context, snap market.DailySnapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.NewPersistence(s.driver, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM console_stats WHERE date = ?`), snap.Date); err != nil {
		return errors.NewPersistence(s.driver, "failed to delete console stats", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM snapshots WHERE date = ?`), snap.Date); err != nil {
		return errors.NewPersistence(s.driver, "failed to delete snapshot", err)
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT INTO snapshots (date, scraped_at) VALUES (:date, :scraped_at)`,
		snapshotRow{Date: snap.Date, ScrapedAt: snap.ScrapedAt}); err != nil {
		return errors.NewPersistence(s.driver, "failed to insert snapshot", err)
	}

	keys := make([]string, 0, len(snap.Consoles))
	for key := range snap.Consoles {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		row := statsRow{Date: snap.Date, Console: key, ConsoleStats: snap.Consoles[key]}
		if _, err := tx.NamedExecContext(ctx, insertStats, row); err != nil {
			return errors.NewPersistence(s.driver, "failed to insert stats of "+key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewPersistence(s.driver, "failed to commit snapshot", err)
	}

	s.log.Info().Str("driver", s.driver).Str("date", snap.Date).Int("consoles", len(keys)).Msg("Saved")
	return nil
}

// History rebuilds every stored snapshot in ascending date order
func (s *SQLStore) History(ctx context.Context) ([]market.DailySnapshot, error) {
	var snapshots []snapshotRow
	if err := s.db.SelectContext(ctx, &snapshots, `SELECT date, scraped_at FROM snapshots ORDER BY date`); err != nil {
		return nil, errors.NewPersistence(s.driver, "failed to load snapshots", err)
	}

	var rows []statsRow
	if err := s.db.SelectContext(ctx, &rows, selectStats); err != nil {
		return nil, errors.NewPersistence(s.driver, "failed to load console stats", err)
	}

	history := make([]market.DailySnapshot, 0, len(snapshots))
	index := make(map[string]int, len(snapshots))
	for _, snap := range snapshots {
		index[snap.Date] = len(history)
		history = append(history, market.DailySnapshot{
			Date:      snap.Date,
			ScrapedAt: snap.ScrapedAt,
			Consoles:  make(map[string]market.ConsoleStats),
		})
	}
	for _, row := range rows {
		if i, ok := index[row.Date]; ok {
			history[i].Consoles[row.Console] = row.ConsoleStats
		}
	}

	return history, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
