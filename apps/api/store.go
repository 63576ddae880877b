package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type reportStore interface {
	ListVerifiedCities(ctx context.Context) ([]string, error)
	CountVerified(ctx context.Context, scope Scope, since time.Time) (int, int, error)
	VerifiedTypeBreakdown(ctx context.Context, scope Scope) (map[string]int, error)
	RecentVerified(ctx context.Context, scope Scope, limit int) ([]Report, error)
	ListVerifiedReports(ctx context.Context) ([]Report, error)
	InsertReport(ctx context.Context, submission ReportSubmission, createdAt time.Time) (int, error)

	ListReports(ctx context.Context, scope Scope) ([]Report, error)
	CountByStatus(ctx context.Context, scope Scope) (StatusCounts, error)
	SetReportStatus(ctx context.Context, reportID int, scope Scope, status, actor string, at time.Time) (bool, error)

	FindAdminByUsername(ctx context.Context, username string) (*AdminAccount, error)
	UpsertAdmin(ctx context.Context, account AdminAccount) error
	ListDigestRecipients(ctx context.Context) ([]AdminAccount, error)
}

type pgStore struct {
	db *sql.DB
}

func newPGStore(db *sql.DB) *pgStore {
	return &pgStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var r Report
	var lat, lng sql.NullFloat64
	if err := row.Scan(&r.ID, &r.Type, &r.Description, &lat, &lng, &r.City, &r.CreatedAt, &r.Status); err != nil {
		return Report{}, err
	}
	if lat.Valid {
		r.Lat = &lat.Float64
	}
	if lng.Valid {
		r.Lng = &lng.Float64
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *pgStore) queryReports(ctx context.Context, builder sq.SelectBuilder) ([]Report, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []Report{}
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *pgStore) ListVerifiedCities(ctx context.Context) ([]string, error) {
	query, args, err := buildVerifiedCitiesQuery().ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list verified cities: %w", err)
	}
	defer rows.Close()

	cities := []string{}
	for rows.Next() {
		var city string
		if err := rows.Scan(&city); err != nil {
			return nil, err
		}
		cities = append(cities, city)
	}
	return cities, rows.Err()
}

func (s *pgStore) CountVerified(ctx context.Context, scope Scope, since time.Time) (int, int, error) {
	query, args, err := buildVerifiedCountsQuery(scope, since).ToSql()
	if err != nil {
		return 0, 0, err
	}
	var total, recent int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total, &recent); err != nil {
		return 0, 0, fmt.Errorf("count verified reports: %w", err)
	}
	return total, recent, nil
}

func (s *pgStore) VerifiedTypeBreakdown(ctx context.Context, scope Scope) (map[string]int, error) {
	query, args, err := buildTypeBreakdownQuery(scope).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("verified type breakdown: %w", err)
	}
	defer rows.Close()

	breakdown := map[string]int{}
	for rows.Next() {
		var reportType string
		var count int
		if err := rows.Scan(&reportType, &count); err != nil {
			return nil, err
		}
		breakdown[reportType] = count
	}
	return breakdown, rows.Err()
}

func (s *pgStore) RecentVerified(ctx context.Context, scope Scope, limit int) ([]Report, error) {
	reports, err := s.queryReports(ctx, buildRecentVerifiedQuery(scope, limit))
	if err != nil {
		return nil, fmt.Errorf("recent verified reports: %w", err)
	}
	return reports, nil
}

func (s *pgStore) ListVerifiedReports(ctx context.Context) ([]Report, error) {
	reports, err := s.queryReports(ctx, buildVerifiedReportsQuery())
	if err != nil {
		return nil, fmt.Errorf("list verified reports: %w", err)
	}
	return reports, nil
}

func (s *pgStore) InsertReport(ctx context.Context, submission ReportSubmission, createdAt time.Time) (int, error) {
	query, args, err := buildInsertReportQuery(submission, createdAt).ToSql()
	if err != nil {
		return 0, err
	}
	var id int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	return id, nil
}

func (s *pgStore) ListReports(ctx context.Context, scope Scope) ([]Report, error) {
	reports, err := s.queryReports(ctx, buildModerationListQuery(scope))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

func (s *pgStore) CountByStatus(ctx context.Context, scope Scope) (StatusCounts, error) {
	query, args, err := buildStatusCountsQuery(scope).ToSql()
	if err != nil {
		return StatusCounts{}, err
	}
	var counts StatusCounts
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&counts.Total, &counts.Verified, &counts.Pending, &counts.Rejected); err != nil {
		return StatusCounts{}, fmt.Errorf("count reports by status: %w", err)
	}
	return counts, nil
}

// SetReportStatus overwrites the status of a report visible in scope and
// records the transition. It reports false when no such report exists.
func (s *pgStore) SetReportStatus(ctx context.Context, reportID int, scope Scope, status, actor string, at time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	lookup, lookupArgs, err := buildScopedReportLookupQuery(reportID, scope).ToSql()
	if err != nil {
		return false, err
	}
	var id int
	var previous string
	if err := tx.QueryRowContext(ctx, lookup, lookupArgs...).Scan(&id, &previous); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("lookup report %d: %w", reportID, err)
	}

	update, updateArgs, err := buildUpdateReportStatusQuery(id, status).ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, update, updateArgs...); err != nil {
		return false, fmt.Errorf("update report %d status: %w", reportID, err)
	}

	event, eventArgs, err := buildInsertReportEventQuery(id, "status_"+status, actor, at).ToSql()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, event, eventArgs...); err != nil {
		return false, fmt.Errorf("record report %d event: %w", reportID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
