package main

import (
	"net/http"
	"strings"
)

// Scope selects the reports an aggregation or moderation query covers:
// either every city or a single city matched case-insensitively.
type Scope struct {
	city string
	all  bool
}

func AllCities() Scope { return Scope{all: true} }

func CityScope(city string) Scope { return Scope{city: strings.TrimSpace(city)} }

func (s Scope) IsAllCities() bool { return s.all }

func (s Scope) City() string { return s.city }

func (s Scope) maxTotal() int {
	if s.all {
		return allCitiesMaxTotal
	}
	return cityMaxTotal
}

func (s Scope) String() string {
	if s.all {
		return "all"
	}
	return s.city
}

// parseScope maps a city path segment to a Scope. The all-cities label
// matches without regard to case.
func parseScope(raw, allCitiesLabel string) Scope {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, allCitiesLabel) {
		return AllCities()
	}
	return CityScope(trimmed)
}

func scopeForSession(session AdminSession) (Scope, error) {
	if session.Role == roleSuperAdmin {
		return AllCities(), nil
	}
	if strings.TrimSpace(session.City) == "" {
		return Scope{}, &apiError{Status: http.StatusForbidden, Code: "forbidden", Message: "Access restricted: invalid admin scope"}
	}
	return CityScope(session.City), nil
}
