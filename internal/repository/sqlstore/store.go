// Package sqlstore implements repository.Repository on database/sql. The
// sqlite and postgres packages open the connection and supply a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"subway/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store is the shared SQL repository
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database and applies the dialect's schema
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if dialect.Rebind == nil {
		dialect.Rebind = KeepQuestionMarks
	}
	if dialect.IsUniqueViolation == nil {
		dialect.IsUniqueViolation = func(error) bool { return false }
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to migrate %s database: %w", dialect.Name, err)
	}
	return s, nil
}

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

func (s *Store) op(name string) string {
	return s.dialect.Name + "." + name
}

// ============================================================================
// Stations
// ============================================================================

// CreateStation inserts a station and assigns its id
func (s *Store) CreateStation(ctx context.Context, station *domain.Station) error {
	existing, err := s.GetStationByName(ctx, station.Name)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.NewValidationError(s.op("create_station"), fmt.Sprintf("station name %q already exists", station.Name))
	}

	if station.CreatedAt.IsZero() {
		station.CreatedAt = time.Now().UTC()
	}

	err = s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO stations (name, created_at) VALUES (?, ?) RETURNING id
	`), station.Name, station.CreatedAt).Scan(&station.ID)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return domain.NewValidationError(s.op("create_station"), fmt.Sprintf("station name %q already exists", station.Name))
		}
		return fmt.Errorf("failed to insert station: %w", err)
	}
	return nil
}

// GetStation retrieves a station by id
func (s *Store) GetStation(ctx context.Context, id int64) (*domain.Station, error) {
	return s.getStation(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = ?`, id)
}

// GetStationByName retrieves a station by name
func (s *Store) GetStationByName(ctx context.Context, name string) (*domain.Station, error) {
	return s.getStation(ctx, `SELECT `+stationColumns+` FROM stations WHERE name = ?`, name)
}

func (s *Store) getStation(ctx context.Context, query string, arg interface{}) (*domain.Station, error) {
	var row stationRow
	err := s.db.QueryRowContext(ctx, s.q(query), arg).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	station := row.toDomain()
	return &station, nil
}

// ListStations returns all stations ordered by id
func (s *Store) ListStations(ctx context.Context) ([]domain.Station, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+stationColumns+` FROM stations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stations: %w", err)
	}
	defer rows.Close()

	stations := make([]domain.Station, 0)
	for rows.Next() {
		var row stationRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan station: %w", err)
		}
		stations = append(stations, row.toDomain())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stations: %w", err)
	}
	return stations, nil
}

// DeleteStation removes a station
func (s *Store) DeleteStation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM stations
		WHERE id = ?
		AND NOT EXISTS (SELECT 1 FROM sections WHERE up_station_id = ? OR down_station_id = ?)
	`), id, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete station: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	station, err := s.GetStation(ctx, id)
	if err != nil {
		return err
	}
	if station == nil {
		return domain.NewNotFoundError(s.op("delete_station"), fmt.Sprintf("station %d not found", id))
	}
	return domain.NewValidationError(s.op("delete_station"), fmt.Sprintf("station %d is used by a line", id))
}

// StationInUse reports whether any section references the station
func (s *Store) StationInUse(ctx context.Context, id int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM sections WHERE up_station_id = ? OR down_station_id = ?
	`), id, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check station usage: %w", err)
	}
	return n > 0, nil
}

// ============================================================================
// Lines
// ============================================================================

// CreateLine inserts a line and its sections in one transaction
func (s *Store) CreateLine(ctx context.Context, line *domain.Line) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.checkLineUnique(ctx, tx, s.op("create_line"), 0, line.Name, line.Color); err != nil {
		return err
	}

	now := time.Now().UTC()
	if line.CreatedAt.IsZero() {
		line.CreatedAt = now
	}
	line.UpdatedAt = now

	var id int64
	err = tx.QueryRowContext(ctx, s.q(`
		INSERT INTO lines (name, color, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?) RETURNING id
	`), line.Name, line.Color, line.CreatedAt, line.UpdatedAt).Scan(&id)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return domain.NewValidationError(s.op("create_line"), "line name or color already exists")
		}
		return fmt.Errorf("failed to insert line: %w", err)
	}

	if err := s.insertSections(ctx, tx, id, line.Sections()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit line: %w", err)
	}

	line.ID = id
	line.Version = 1
	return nil
}

// GetLine loads a line with its sections
func (s *Store) GetLine(ctx context.Context, id int64) (*domain.Line, error) {
	return s.getLine(ctx, `SELECT `+lineColumns+` FROM lines WHERE id = ?`, id)
}

// FindLineByName looks a line up by name
func (s *Store) FindLineByName(ctx context.Context, name string) (*domain.Line, error) {
	return s.getLine(ctx, `SELECT `+lineColumns+` FROM lines WHERE name = ?`, name)
}

// FindLineByColor looks a line up by color
func (s *Store) FindLineByColor(ctx context.Context, color string) (*domain.Line, error) {
	return s.getLine(ctx, `SELECT `+lineColumns+` FROM lines WHERE color = ?`, color)
}

func (s *Store) getLine(ctx context.Context, query string, arg interface{}) (*domain.Line, error) {
	var row lineRow
	err := s.db.QueryRowContext(ctx, s.q(query), arg).Scan(row.scanArgs()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get line: %w", err)
	}

	bySection, err := s.loadSections(ctx, `SELECT `+sectionColumns+` FROM sections WHERE line_id = ?`, row.ID)
	if err != nil {
		return nil, err
	}
	return row.toDomain(bySection[row.ID])
}

// ListLines returns all lines ordered by id
func (s *Store) ListLines(ctx context.Context) ([]*domain.Line, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+lineColumns+` FROM lines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}

	var lineRows []lineRow
	for rows.Next() {
		var row lineRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		lineRows = append(lineRows, row)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating lines: %w", err)
	}

	bySection, err := s.loadSections(ctx, `SELECT `+sectionColumns+` FROM sections`)
	if err != nil {
		return nil, err
	}

	lines := make([]*domain.Line, 0, len(lineRows))
	for i := range lineRows {
		line, err := lineRows[i].toDomain(bySection[lineRows[i].ID])
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// loadSections groups the selected section rows by line id
func (s *Store) loadSections(ctx context.Context, query string, args ...interface{}) (map[int64][]domain.Section, error) {
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.Section)
	for rows.Next() {
		var row sectionRow
		if err := rows.Scan(row.scanArgs()...); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		section, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[row.LineID] = append(out[row.LineID], section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sections: %w", err)
	}
	return out, nil
}

// UpdateLineInfo stores a new name and color
func (s *Store) UpdateLineInfo(ctx context.Context, line *domain.Line) error {
	if err := s.checkLineUnique(ctx, s.db, s.op("update_line"), line.ID, line.Name, line.Color); err != nil {
		return err
	}

	line.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE lines SET name = ?, color = ?, updated_at = ? WHERE id = ?
	`), line.Name, line.Color, line.UpdatedAt, line.ID)
	if err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return domain.NewValidationError(s.op("update_line"), "line name or color already exists")
		}
		return fmt.Errorf("failed to update line: %w", err)
	}
	return s.requireAffected(res, s.op("update_line"), fmt.Sprintf("line %d not found", line.ID))
}

// DeleteLine removes a line and its sections
func (s *Store) DeleteLine(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM sections WHERE line_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}
	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM lines WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete line: %w", err)
	}
	if err := s.requireAffected(res, s.op("delete_line"), fmt.Sprintf("line %d not found", id)); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveSections replaces the section set under an optimistic version check.
// The version bump and the rewrite commit together or not at all.
func (s *Store) SaveSections(ctx context.Context, line *domain.Line) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, s.q(`
		UPDATE lines SET version = version + 1, updated_at = ? WHERE id = ? AND version = ?
	`), now, line.ID, line.Version)
	if err != nil {
		return fmt.Errorf("failed to bump line version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		var current int64
		err := tx.QueryRowContext(ctx, s.q(`SELECT version FROM lines WHERE id = ?`), line.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFoundError(s.op("save_sections"), fmt.Sprintf("line %d not found", line.ID))
		}
		if err != nil {
			return fmt.Errorf("failed to read line version: %w", err)
		}
		return domain.NewConflictError(s.op("save_sections"),
			fmt.Sprintf("line %d is at version %d, write was based on %d", line.ID, current, line.Version))
	}

	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM sections WHERE line_id = ?`), line.ID); err != nil {
		return fmt.Errorf("failed to clear sections: %w", err)
	}
	if err := s.insertSections(ctx, tx, line.ID, line.Sections()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sections: %w", err)
	}

	line.Version++
	line.UpdatedAt = now
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================================================
// Helpers
// ============================================================================

func (s *Store) insertSections(ctx context.Context, q querier, lineID int64, sections []domain.Section) error {
	query := s.q(`INSERT INTO sections (` + sectionColumns + `) VALUES (?, ?, ?, ?)`)
	for _, section := range sections {
		if _, err := q.ExecContext(ctx, query, sectionInsertArgs(lineID, section)...); err != nil {
			return fmt.Errorf("failed to insert section %s: %w", section, err)
		}
	}
	return nil
}

func (s *Store) checkLineUnique(ctx context.Context, q querier, op string, selfID int64, name, color string) error {
	rows, err := q.QueryContext(ctx, s.q(`
		SELECT name, color FROM lines WHERE (name = ? OR color = ?) AND id <> ?
	`), name, color, selfID)
	if err != nil {
		return fmt.Errorf("failed to check line uniqueness: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var existingName, existingColor string
		if err := rows.Scan(&existingName, &existingColor); err != nil {
			return fmt.Errorf("failed to scan line: %w", err)
		}
		if existingName == name {
			return domain.NewValidationError(op, fmt.Sprintf("line name %q already exists", name))
		}
		return domain.NewValidationError(op, fmt.Sprintf("line color %q already exists", color))
	}
	return rows.Err()
}

func (s *Store) requireAffected(res sql.Result, op, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError(op, msg)
	}
	return nil
}
