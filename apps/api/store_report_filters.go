package main

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var reportColumns = []string{
	"reports.id",
	"reports.type",
	"reports.description",
	"reports.lat",
	"reports.lng",
	"reports.city",
	"reports.created_at",
	"reports.status",
}

var adminColumns = []string{
	"admins.id",
	"admins.username",
	"admins.password_hash",
	"admins.city",
	"admins.role",
	"admins.email",
}

func applyScope(builder sq.SelectBuilder, scope Scope) sq.SelectBuilder {
	if scope.IsAllCities() {
		return builder
	}
	return builder.Where(sq.Expr("LOWER(reports.city) = LOWER(?)", scope.City()))
}

func verifiedReports(builder sq.SelectBuilder, scope Scope) sq.SelectBuilder {
	return applyScope(builder.From("reports").Where(sq.Eq{"reports.status": statusVerified}), scope)
}

// total and rolling-window counts come from one statement so the window
// count can never exceed the total.
func buildVerifiedCountsQuery(scope Scope, since time.Time) sq.SelectBuilder {
	return verifiedReports(
		psql.Select("COUNT(*)").Column(sq.Expr("COUNT(*) FILTER (WHERE reports.created_at >= ?)", since)),
		scope,
	)
}

func buildTypeBreakdownQuery(scope Scope) sq.SelectBuilder {
	return verifiedReports(psql.Select("reports.type", "COUNT(*)"), scope).
		GroupBy("reports.type").
		OrderBy("reports.type")
}

func buildRecentVerifiedQuery(scope Scope, limit int) sq.SelectBuilder {
	return verifiedReports(psql.Select(reportColumns...), scope).
		OrderBy("reports.created_at DESC", "reports.id DESC").
		Limit(uint64(limit))
}

func buildVerifiedReportsQuery() sq.SelectBuilder {
	return verifiedReports(psql.Select(reportColumns...), AllCities()).
		OrderBy("reports.created_at DESC", "reports.id DESC")
}

func buildVerifiedCitiesQuery() sq.SelectBuilder {
	return verifiedReports(psql.Select("reports.city").Distinct(), AllCities()).
		OrderBy("reports.city")
}

func buildModerationListQuery(scope Scope) sq.SelectBuilder {
	return applyScope(psql.Select(reportColumns...).From("reports"), scope).
		OrderBy("reports.created_at DESC", "reports.id DESC")
}

func buildStatusCountsQuery(scope Scope) sq.SelectBuilder {
	return applyScope(
		psql.Select("COUNT(*)").
			Column(sq.Expr("COUNT(*) FILTER (WHERE reports.status = ?)", statusVerified)).
			Column(sq.Expr("COUNT(*) FILTER (WHERE reports.status = ?)", statusPending)).
			Column(sq.Expr("COUNT(*) FILTER (WHERE reports.status = ?)", statusRejected)).
			From("reports"),
		scope,
	)
}

func buildScopedReportLookupQuery(reportID int, scope Scope) sq.SelectBuilder {
	return applyScope(psql.Select("reports.id", "reports.status").From("reports").Where(sq.Eq{"reports.id": reportID}), scope).
		Suffix("FOR UPDATE")
}

func buildInsertReportQuery(submission ReportSubmission, createdAt time.Time) sq.InsertBuilder {
	return psql.Insert("reports").
		Columns("type", "description", "lat", "lng", "city", "created_at", "status").
		Values(submission.Type, submission.Description, submission.Lat, submission.Lng, submission.City, createdAt, statusPending).
		Suffix("RETURNING id")
}

func buildUpdateReportStatusQuery(reportID int, status string) sq.UpdateBuilder {
	return psql.Update("reports").
		Set("status", status).
		Where(sq.Eq{"id": reportID})
}

func buildInsertReportEventQuery(reportID int, eventType, actor string, createdAt time.Time) sq.InsertBuilder {
	return psql.Insert("report_events").
		Columns("report_id", "created_at", "type", "actor").
		Values(reportID, createdAt, eventType, actor)
}

func buildAdminByUsernameQuery(username string) sq.SelectBuilder {
	return psql.Select(adminColumns...).From("admins").Where(sq.Eq{"admins.username": username})
}

func buildDigestRecipientsQuery() sq.SelectBuilder {
	return psql.Select(adminColumns...).
		From("admins").
		Where(sq.NotEq{"admins.email": nil}).
		Where(sq.NotEq{"admins.email": ""}).
		OrderBy("admins.username")
}

func buildUpsertAdminQuery(account AdminAccount) sq.InsertBuilder {
	return psql.Insert("admins").
		Columns("username", "password_hash", "city", "role", "email").
		Values(account.Username, account.PasswordHash, strings.TrimSpace(account.City), account.Role, account.Email).
		Suffix(`ON CONFLICT (username)
			DO UPDATE SET
				password_hash = EXCLUDED.password_hash,
				city = EXCLUDED.city,
				role = EXCLUDED.role,
				email = COALESCE(EXCLUDED.email, admins.email),
				updated_at = NOW()`)
}
