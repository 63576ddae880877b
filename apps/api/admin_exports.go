package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"
)

type exportFormat struct {
	contentType string
	extension   string
}

var exportFormats = map[string]exportFormat{
	"csv":     {contentType: "text/csv; charset=utf-8", extension: "csv"},
	"geojson": {contentType: "application/geo+json", extension: "geojson"},
	"pdf":     {contentType: "application/pdf", extension: "pdf"},
}

func (a *App) adminExportHandler(c *gin.Context) {
	session, err := getAdminSession(c)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/admin_login")
		return
	}

	format := strings.ToLower(strings.TrimSpace(c.Param("format")))
	target, ok := exportFormats[format]
	if !ok {
		writeAPIError(c, &apiError{Status: http.StatusBadRequest, Code: "invalid_format", Message: "Export format must be csv, geojson or pdf"})
		return
	}

	scope, err := scopeForSession(session)
	if err != nil {
		writeAPIError(c, err)
		return
	}

	reports, err := a.store.ListReports(c.Request.Context(), scope)
	if err != nil {
		a.log.Error("export list reports failed", "username", session.Username, "error", err)
		writeAPIError(c, err)
		return
	}

	generatedAt := a.clock()
	var payload []byte
	switch format {
	case "csv":
		var data string
		data, err = buildCSV(reports)
		payload = []byte(data)
	case "geojson":
		var data string
		data, err = buildGeoJSON(reports)
		payload = []byte(data)
	case "pdf":
		payload, err = buildPDF(reports, a.scopeLabel(scope), generatedAt)
	}
	if err != nil {
		a.log.Error("export build failed", "format", format, "username", session.Username, "error", err)
		writeAPIError(c, err)
		return
	}

	filename := fmt.Sprintf("crimespot-%s-%s.%s", sanitizeFileNamePart(a.scopeLabel(scope)), generatedAt.Format("20060102-150405"), target.extension)
	a.log.Info("export generated", "format", format, "rows", len(reports), "username", session.Username)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, target.contentType, payload)
}

func sanitizeFileNamePart(value string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	if cleaned == "" {
		return "all"
	}
	return cleaned
}

func formatCoordinate(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', 6, 64)
}

func buildCSV(reports []Report) (string, error) {
	buffer := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buffer)
	headers := []string{"report_id", "date", "status", "type", "city", "lat", "lng", "description"}
	if err := writer.Write(headers); err != nil {
		return "", err
	}
	for _, report := range reports {
		row := []string{
			strconv.Itoa(report.ID),
			formatReportDate(report.CreatedAt),
			report.Status,
			report.Type,
			report.City,
			formatCoordinate(report.Lat),
			formatCoordinate(report.Lng),
			report.Description,
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

// buildGeoJSON skips reports without a full coordinate pair.
func buildGeoJSON(reports []Report) (string, error) {
	features := make([]map[string]any, 0, len(reports))
	for _, report := range reports {
		if report.Lat == nil || report.Lng == nil {
			continue
		}
		features = append(features, map[string]any{
			"type": "Feature",
			"geometry": map[string]any{
				"type":        "Point",
				"coordinates": []float64{*report.Lng, *report.Lat},
			},
			"properties": map[string]any{
				"report_id":   report.ID,
				"date":        formatReportDate(report.CreatedAt),
				"status":      report.Status,
				"type":        report.Type,
				"city":        report.City,
				"description": report.Description,
			},
		})
	}
	payload := map[string]any{"type": "FeatureCollection", "features": features}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

type labelCount struct {
	Label string
	Count int
}

func sortedCounts(counts map[string]int) []labelCount {
	entries := make([]labelCount, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, labelCount{Label: label, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	return entries
}

func buildPDF(reports []Report, scopeLabel string, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 16)
	pdf.Cell(0, 10, fmt.Sprintf("CrimeSpot report summary - %s", scopeLabel))

	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Generated: %s UTC", formatReportDate(generatedAt)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total reports: %d", len(reports)))
	pdf.Ln(10)

	statusCounts := map[string]int{}
	typeCounts := map[string]int{}
	for _, report := range reports {
		statusCounts[report.Status]++
		typeCounts[report.Type]++
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Status distribution")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	for _, entry := range sortedCounts(statusCounts) {
		pdf.Cell(0, 6, fmt.Sprintf("- %s: %d", entry.Label, entry.Count))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 8, "Top incident types")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	types := sortedCounts(typeCounts)
	if len(types) > 10 {
		types = types[:10]
	}
	for _, entry := range types {
		pdf.Cell(0, 6, fmt.Sprintf("- %s: %d", entry.Label, entry.Count))
		pdf.Ln(6)
	}

	buffer := bytes.NewBuffer(nil)
	if err := pdf.Output(buffer); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
