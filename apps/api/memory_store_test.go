package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"
)

const testSigningSecret = "0123456789abcdef"

var testNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

type memoryEvent struct {
	ReportID  int
	Type      string
	Actor     string
	CreatedAt time.Time
}

// memoryStore mirrors pgStore semantics: case-insensitive city matching,
// verified-only aggregation and newest-first ordering.
type memoryStore struct {
	mu      sync.Mutex
	nextID  int
	reports []Report
	events  []memoryEvent
	admins  map[string]AdminAccount

	insertErr error
	readErr   error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{nextID: 1, admins: map[string]AdminAccount{}}
}

func (s *memoryStore) seedReport(report Report) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	report.ID = s.nextID
	s.nextID++
	if report.Status == "" {
		report.Status = statusPending
	}
	s.reports = append(s.reports, report)
	return report.ID
}

func (s *memoryStore) seedAdmin(t *testing.T, username, password, city, role string, email *string) {
	t.Helper()
	hash, err := hashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[username] = AdminAccount{
		ID:           len(s.admins) + 1,
		Username:     username,
		PasswordHash: hash,
		City:         city,
		Role:         role,
		Email:        email,
	}
}

func (s *memoryStore) report(id int) Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r
		}
	}
	return Report{}
}

func inScope(r Report, scope Scope) bool {
	return scope.IsAllCities() || strings.EqualFold(r.City, scope.City())
}

func (s *memoryStore) filtered(scope Scope, verifiedOnly bool) []Report {
	out := []Report{}
	for _, r := range s.reports {
		if verifiedOnly && r.Status != statusVerified {
			continue
		}
		if !inScope(r, scope) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *memoryStore) ListVerifiedCities(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	seen := map[string]struct{}{}
	cities := []string{}
	for _, r := range s.filtered(AllCities(), true) {
		if _, ok := seen[r.City]; ok {
			continue
		}
		seen[r.City] = struct{}{}
		cities = append(cities, r.City)
	}
	sort.Strings(cities)
	return cities, nil
}

func (s *memoryStore) CountVerified(ctx context.Context, scope Scope, since time.Time) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return 0, 0, s.readErr
	}
	total, recent := 0, 0
	for _, r := range s.filtered(scope, true) {
		total++
		if !r.CreatedAt.Before(since) {
			recent++
		}
	}
	return total, recent, nil
}

func (s *memoryStore) VerifiedTypeBreakdown(ctx context.Context, scope Scope) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	breakdown := map[string]int{}
	for _, r := range s.filtered(scope, true) {
		breakdown[r.Type]++
	}
	return breakdown, nil
}

func (s *memoryStore) RecentVerified(ctx context.Context, scope Scope, limit int) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	reports := s.filtered(scope, true)
	if len(reports) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *memoryStore) ListVerifiedReports(ctx context.Context) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.filtered(AllCities(), true), nil
}

func (s *memoryStore) InsertReport(ctx context.Context, submission ReportSubmission, createdAt time.Time) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	return s.seedReport(Report{
		Type:        submission.Type,
		Description: submission.Description,
		Lat:         submission.Lat,
		Lng:         submission.Lng,
		City:        submission.City,
		CreatedAt:   createdAt,
		Status:      statusPending,
	}), nil
}

func (s *memoryStore) ListReports(ctx context.Context, scope Scope) ([]Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.filtered(scope, false), nil
}

func (s *memoryStore) CountByStatus(ctx context.Context, scope Scope) (StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return StatusCounts{}, s.readErr
	}
	var counts StatusCounts
	for _, r := range s.filtered(scope, false) {
		counts.Total++
		switch r.Status {
		case statusVerified:
			counts.Verified++
		case statusPending:
			counts.Pending++
		case statusRejected:
			counts.Rejected++
		}
	}
	return counts, nil
}

func (s *memoryStore) SetReportStatus(ctx context.Context, reportID int, scope Scope, status, actor string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.reports {
		if r.ID != reportID || !inScope(r, scope) {
			continue
		}
		s.reports[i].Status = status
		s.events = append(s.events, memoryEvent{ReportID: reportID, Type: "status_" + status, Actor: actor, CreatedAt: at})
		return true, nil
	}
	return false, nil
}

func (s *memoryStore) FindAdminByUsername(ctx context.Context, username string) (*AdminAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	account, ok := s.admins[username]
	if !ok {
		return nil, nil
	}
	return &account, nil
}

func (s *memoryStore) UpsertAdmin(ctx context.Context, account AdminAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.City = strings.TrimSpace(account.City)
	if existing, ok := s.admins[account.Username]; ok {
		account.ID = existing.ID
		if account.Email == nil {
			account.Email = existing.Email
		}
	} else {
		account.ID = len(s.admins) + 1
	}
	s.admins[account.Username] = account
	return nil
}

func (s *memoryStore) ListDigestRecipients(ctx context.Context) ([]AdminAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	accounts := []AdminAccount{}
	for _, account := range s.admins {
		if account.Email != nil && *account.Email != "" {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Username < accounts[j].Username })
	return accounts, nil
}

func newTestServer(t *testing.T) (*App, *memoryStore, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemoryStore()
	registry := prometheus.NewRegistry()
	app := &App{
		cfg: &Config{
			Env:              "test",
			AppSigningSecret: testSigningSecret,
			AllCitiesLabel:   defaultAllCitiesLabel,
			PublicBaseURL:    "http://crimespot.test",
		},
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		store:     store,
		metrics:   newAppMetrics(registry),
		templates: newTemplateRenderer("test"),
		now:       func() time.Time { return testNow },
	}

	router := gin.New()
	app.registerRoutes(router, registry)
	return app, store, router
}

func authenticatedRequest(t *testing.T, app *App, method, target, body string, session AdminSession) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("content-type", "application/x-www-form-urlencoded")
	}
	token, err := app.createAdminSessionToken(session)
	if err != nil {
		t.Fatalf("create session token: %v", err)
	}
	req.AddCookie(&http.Cookie{Name: adminCookieName, Value: token, Path: "/"})
	return req
}

func formRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	return req
}

func findResponseCookie(response *http.Response, name string) *http.Cookie {
	for _, cookie := range response.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }
