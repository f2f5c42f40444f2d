// Package sqlite persists exclusion reports across a batch run, so a later
// review pass can list what was auto-excluded per image and restore markers
// by ID.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/atlas-data/region.report/internal/atlas"
	"github.com/atlas-data/region.report/internal/timeutil"
)

// Schema creates the exclusion report table. Safe to run repeatedly.
const Schema = `
CREATE TABLE IF NOT EXISTS exclusion_reports (
	report_id       TEXT PRIMARY KEY,
	project_file    TEXT,
	project_name    TEXT,
	image_name      TEXT NOT NULL,
	marker_id       TEXT NOT NULL,
	region_name     TEXT NOT NULL,
	percentile_rank REAL NOT NULL,
	created_at_ns   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exclusion_reports_image
	ON exclusion_reports (image_name);
`

// ReportStore provides persistence for exclusion reports.
type ReportStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewReportStore creates a ReportStore backed by the given database and
// ensures the schema exists.
func NewReportStore(db *sql.DB) (*ReportStore, error) {
	return NewReportStoreWithClock(db, timeutil.RealClock{})
}

// NewReportStoreWithClock is NewReportStore with an explicit clock, so tests
// can pin report timestamps.
func NewReportStoreWithClock(db *sql.DB, clock timeutil.Clock) (*ReportStore, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("create exclusion report schema: %w", err)
	}
	return &ReportStore{db: db, clock: clock}, nil
}

// Insert persists one report and returns its generated report ID.
func (s *ReportStore) Insert(r atlas.ExclusionReport) (string, error) {
	reportID := uuid.New().String()
	query := `
		INSERT INTO exclusion_reports (
			report_id, project_file, project_name, image_name,
			marker_id, region_name, percentile_rank, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		reportID,
		nullString(r.ProjectFile),
		nullString(r.ProjectName),
		r.ImageName,
		string(r.MarkerID),
		r.RegionName,
		r.PercentileRank,
		s.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert exclusion report: %w", err)
	}
	return reportID, nil
}

// InsertAll persists a batch of reports from one image.
func (s *ReportStore) InsertAll(reports []atlas.ExclusionReport) error {
	for _, r := range reports {
		if _, err := s.Insert(r); err != nil {
			return err
		}
	}
	return nil
}

// ListByImage returns all reports for a given image, oldest first.
func (s *ReportStore) ListByImage(imageName string) ([]atlas.ExclusionReport, error) {
	query := `
		SELECT project_file, project_name, image_name,
		       marker_id, region_name, percentile_rank
		FROM exclusion_reports
		WHERE image_name = ?
		ORDER BY created_at_ns
	`
	rows, err := s.db.Query(query, imageName)
	if err != nil {
		return nil, fmt.Errorf("list exclusion reports: %w", err)
	}
	defer rows.Close()

	var reports []atlas.ExclusionReport
	for rows.Next() {
		var r atlas.ExclusionReport
		var projectFile, projectName sql.NullString
		var markerID string
		if err := rows.Scan(&projectFile, &projectName, &r.ImageName,
			&markerID, &r.RegionName, &r.PercentileRank); err != nil {
			return nil, fmt.Errorf("scan exclusion report: %w", err)
		}
		r.ProjectFile = projectFile.String
		r.ProjectName = projectName.String
		r.MarkerID = atlas.NodeID(markerID)
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// DeleteByMarker removes the reports referencing a marker, called after the
// marker was restored.
func (s *ReportStore) DeleteByMarker(markerID atlas.NodeID) error {
	result, err := s.db.Exec("DELETE FROM exclusion_reports WHERE marker_id = ?", string(markerID))
	if err != nil {
		return fmt.Errorf("delete exclusion reports: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete exclusion reports rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
