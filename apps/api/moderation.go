package main

import (
	"context"
	"fmt"
)

func (a *App) listModerationReports(ctx context.Context, scope Scope) ([]Report, StatusCounts, error) {
	reports, err := a.store.ListReports(ctx, scope)
	if err != nil {
		return nil, StatusCounts{}, err
	}
	counts, err := a.store.CountByStatus(ctx, scope)
	if err != nil {
		return nil, StatusCounts{}, err
	}
	return reports, counts, nil
}

// setReportStatus moves a report in the session's scope to status. Reports
// outside the scope or missing entirely are left untouched and reported as
// not applied. The previous status is not checked, so the last write wins.
func (a *App) setReportStatus(ctx context.Context, session AdminSession, reportID int, status string) (bool, error) {
	if status != statusVerified && status != statusRejected {
		return false, fmt.Errorf("unsupported target status %q", status)
	}
	scope, err := scopeForSession(session)
	if err != nil {
		return false, err
	}
	applied, err := a.store.SetReportStatus(ctx, reportID, scope, status, session.Username, a.clock())
	if err != nil {
		return false, err
	}
	return applied, nil
}
