package sqlstore

import (
	"fmt"
	"time"

	"subway/internal/domain"
)

// ============================================================================
// Schema Evolution Guide
// ============================================================================
//
// To add a column to a table:
// 1. Add the field to the matching row struct
// 2. APPEND it to scanArgs() and to the columns constant
// 3. Map it in toDomain()
// 4. Add it to both dialects' schema in sqlite and postgres
//
// CRITICAL: column order must match between the columns constant and
// scanArgs(). Every SELECT goes through the constant.

// ============================================================================
// Station Row Scanner
// ============================================================================

type stationRow struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// scanArgs MUST match stationColumns: id, name, created_at
func (r *stationRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Name,      // 2
		&r.CreatedAt, // 3
	}
}

func (r *stationRow) toDomain() domain.Station {
	return domain.Station{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

const stationColumns = `id, name, created_at`

// ============================================================================
// Line Row Scanner
// ============================================================================

type lineRow struct {
	ID        int64
	Name      string
	Color     string
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// scanArgs MUST match lineColumns:
// id, name, color, version, created_at, updated_at
func (r *lineRow) scanArgs() []interface{} {
	return []interface{}{
		&r.ID,        // 1
		&r.Name,      // 2
		&r.Color,     // 3
		&r.Version,   // 4
		&r.CreatedAt, // 5
		&r.UpdatedAt, // 6
	}
}

// toDomain rebuilds the line, validating the stored section set
func (r *lineRow) toDomain(sections []domain.Section) (*domain.Line, error) {
	line, err := domain.RestoreLine(r.ID, r.Name, r.Color, r.Version, sections)
	if err != nil {
		return nil, fmt.Errorf("failed to restore line %d: %w", r.ID, err)
	}
	line.CreatedAt = r.CreatedAt.UTC()
	line.UpdatedAt = r.UpdatedAt.UTC()
	return line, nil
}

const lineColumns = `id, name, color, version, created_at, updated_at`

// ============================================================================
// Section Row Scanner
// ============================================================================

type sectionRow struct {
	LineID        int64
	UpStationID   int64
	DownStationID int64
	Distance      int
}

// scanArgs MUST match sectionColumns:
// line_id, up_station_id, down_station_id, distance
func (r *sectionRow) scanArgs() []interface{} {
	return []interface{}{
		&r.LineID,        // 1
		&r.UpStationID,   // 2
		&r.DownStationID, // 3
		&r.Distance,      // 4
	}
}

func (r *sectionRow) toDomain() (domain.Section, error) {
	s, err := domain.NewSection(r.UpStationID, r.DownStationID, r.Distance)
	if err != nil {
		return domain.Section{}, fmt.Errorf("corrupt section on line %d: %w", r.LineID, err)
	}
	return s, nil
}

const sectionColumns = `line_id, up_station_id, down_station_id, distance`

// sectionInsertArgs prepares arguments for a section INSERT
// Returns: line_id, up_station_id, down_station_id, distance
func sectionInsertArgs(lineID int64, s domain.Section) []interface{} {
	return []interface{}{
		lineID,
		s.UpStationID(),
		s.DownStationID(),
		s.Distance(),
	}
}
