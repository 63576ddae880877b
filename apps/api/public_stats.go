package main

import (
	"context"
	"math"
)

// computeSafetyScore maps a verified report count onto a 0-10 scale where
// maxTotal reports or more scores zero. The result has one decimal.
func computeSafetyScore(total, maxTotal int) float64 {
	if maxTotal <= 0 {
		return 0
	}
	score := 10 - float64(total)/float64(maxTotal)*10
	if score < 0 {
		score = 0
	}
	return math.Round(score*10) / 10
}

func (a *App) cityStats(ctx context.Context, scope Scope) (CityStats, error) {
	since := a.clock().Add(-recentWindow)
	total, last24, err := a.store.CountVerified(ctx, scope, since)
	if err != nil {
		return CityStats{}, err
	}
	breakdown, err := a.store.VerifiedTypeBreakdown(ctx, scope)
	if err != nil {
		return CityStats{}, err
	}
	if breakdown == nil {
		breakdown = map[string]int{}
	}

	return CityStats{
		Total:     total,
		Last24:    last24,
		Safety:    computeSafetyScore(total, scope.maxTotal()),
		Breakdown: breakdown,
	}, nil
}

func (a *App) recentIncidents(ctx context.Context, scope Scope) ([]RecentIncident, error) {
	reports, err := a.store.RecentVerified(ctx, scope, recentIncidentsLimit)
	if err != nil {
		return nil, err
	}
	incidents := make([]RecentIncident, 0, len(reports))
	for _, report := range reports {
		incidents = append(incidents, RecentIncident{
			Type:        report.Type,
			Description: report.Description,
			Date:        formatReportDate(report.CreatedAt),
		})
	}
	return incidents, nil
}

func (a *App) verifiedMapPoints(ctx context.Context) ([]MapIncident, error) {
	reports, err := a.store.ListVerifiedReports(ctx)
	if err != nil {
		return nil, err
	}
	points := make([]MapIncident, 0, len(reports))
	for _, report := range reports {
		points = append(points, MapIncident{
			Lat:         report.Lat,
			Lng:         report.Lng,
			Type:        report.Type,
			Description: report.Description,
			Date:        formatReportDate(report.CreatedAt),
		})
	}
	return points, nil
}

// dashboardCities lists the city selector entries, all-cities label first.
func (a *App) dashboardCities(ctx context.Context) ([]string, error) {
	cities, err := a.store.ListVerifiedCities(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]string, 0, len(cities)+1)
	options = append(options, a.cfg.AllCitiesLabel)
	options = append(options, cities...)
	return options, nil
}
