package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVerifiedCountsQueryCityScope(t *testing.T) {
	since := testNow.Add(-recentWindow)

	sqlText, args, err := buildVerifiedCountsQuery(CityScope("Pune"), since).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "COUNT(*) FILTER (WHERE reports.created_at >= $1)")
	assert.Contains(t, sqlText, "FROM reports")
	assert.Contains(t, sqlText, "reports.status = $2")
	assert.Contains(t, sqlText, "LOWER(reports.city) = LOWER($3)")
	assert.Equal(t, []any{since, statusVerified, "Pune"}, args)
}

func TestBuildVerifiedCountsQueryAllCitiesHasNoCityFilter(t *testing.T) {
	sqlText, args, err := buildVerifiedCountsQuery(AllCities(), testNow).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sqlText, "LOWER(reports.city)")
	assert.Len(t, args, 2)
}

func TestBuildTypeBreakdownQuery(t *testing.T) {
	sqlText, args, err := buildTypeBreakdownQuery(CityScope("Delhi")).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "GROUP BY reports.type")
	assert.Equal(t, []any{statusVerified, "Delhi"}, args)
}

func TestBuildRecentVerifiedQueryOrdersNewestFirst(t *testing.T) {
	sqlText, _, err := buildRecentVerifiedQuery(AllCities(), recentIncidentsLimit).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "ORDER BY reports.created_at DESC, reports.id DESC")
	assert.Contains(t, sqlText, "LIMIT 3")
}

func TestBuildVerifiedCitiesQuery(t *testing.T) {
	sqlText, args, err := buildVerifiedCitiesQuery().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "SELECT DISTINCT reports.city")
	assert.Contains(t, sqlText, "ORDER BY reports.city")
	assert.Equal(t, []any{statusVerified}, args)
}

func TestBuildModerationListQueryIncludesAllStatuses(t *testing.T) {
	sqlText, args, err := buildModerationListQuery(CityScope("Pune")).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sqlText, "reports.status =")
	assert.Equal(t, []any{"Pune"}, args)
}

func TestBuildStatusCountsQueryArgOrder(t *testing.T) {
	_, args, err := buildStatusCountsQuery(CityScope("Pune")).ToSql()
	require.NoError(t, err)

	assert.Equal(t, []any{statusVerified, statusPending, statusRejected, "Pune"}, args)
}

func TestBuildScopedReportLookupQueryLocksRow(t *testing.T) {
	sqlText, args, err := buildScopedReportLookupQuery(7, CityScope("Pune")).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "reports.id = $1")
	assert.Contains(t, sqlText, "LOWER(reports.city) = LOWER($2)")
	assert.Contains(t, sqlText, "FOR UPDATE")
	assert.Equal(t, []any{7, "Pune"}, args)
}

func TestBuildInsertReportQueryStoresPending(t *testing.T) {
	lat := 18.52
	createdAt := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	submission := ReportSubmission{Type: "Theft", Description: "bike", Lat: &lat, City: "Pune"}

	sqlText, args, err := buildInsertReportQuery(submission, createdAt).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "INSERT INTO reports")
	assert.Contains(t, sqlText, "RETURNING id")
	require.Len(t, args, 7)
	assert.Equal(t, statusPending, args[6])
	assert.Equal(t, createdAt, args[5])
}

func TestBuildDigestRecipientsQuery(t *testing.T) {
	sqlText, _, err := buildDigestRecipientsQuery().ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "admins.email IS NOT NULL")
	assert.Contains(t, sqlText, "ORDER BY admins.username")
}

func TestBuildUpsertAdminQueryKeepsExistingEmail(t *testing.T) {
	sqlText, _, err := buildUpsertAdminQuery(AdminAccount{Username: "root", Role: roleSuperAdmin}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sqlText, "ON CONFLICT (username)")
	assert.Contains(t, sqlText, "COALESCE(EXCLUDED.email, admins.email)")
}
