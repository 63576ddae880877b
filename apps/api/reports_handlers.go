package main

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) registerPublicRoutes(r *gin.Engine) {
	public := r.Group("")
	public.Use(a.optionalAdminSession())
	{
		public.GET("/", a.dashboardPageHandler)
		public.GET("/city_stats/:city", a.cityStatsHandler)
		public.GET("/recent_crimes/:city", a.recentCrimesHandler)
		public.GET("/report", a.reportPageHandler)
		public.POST("/report", a.reportSubmitHandler)
		public.GET("/get_verified_reports", a.verifiedReportsHandler)
		public.GET("/map", a.mapPageHandler)
		public.GET("/awareness", a.awarenessPageHandler)
	}
}

func (a *App) dashboardPageHandler(c *gin.Context) {
	cities, err := a.dashboardCities(c.Request.Context())
	if err != nil {
		a.log.Error("list dashboard cities failed", "error", err)
		base := a.baseData(c, "Dashboard")
		base.ErrorMessage = errorDashboardLoadFailed
		a.renderTemplate(c, http.StatusInternalServerError, templateDashboardPath, dashboardViewData{
			baseViewData:   base,
			Cities:         []string{a.cfg.AllCitiesLabel},
			AllCitiesLabel: a.cfg.AllCitiesLabel,
		})
		return
	}

	a.renderTemplate(c, http.StatusOK, templateDashboardPath, dashboardViewData{
		baseViewData:   a.baseData(c, "Dashboard"),
		Cities:         cities,
		AllCitiesLabel: a.cfg.AllCitiesLabel,
	})
}

func (a *App) cityStatsHandler(c *gin.Context) {
	scope := parseScope(c.Param("city"), a.cfg.AllCitiesLabel)
	stats, err := a.cityStats(c.Request.Context(), scope)
	if err != nil {
		a.log.Error("city stats failed", "scope", scope.String(), "error", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *App) recentCrimesHandler(c *gin.Context) {
	scope := parseScope(c.Param("city"), a.cfg.AllCitiesLabel)
	incidents, err := a.recentIncidents(c.Request.Context(), scope)
	if err != nil {
		a.log.Error("recent crimes failed", "scope", scope.String(), "error", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, incidents)
}

func (a *App) reportPageHandler(c *gin.Context) {
	a.renderTemplate(c, http.StatusOK, templateReportPath, reportFormViewData{
		baseViewData: a.baseData(c, "Report an incident"),
		Categories:   reportCategories,
	})
}

func (a *App) reportSubmitHandler(c *gin.Context) {
	submission := ReportSubmission{
		Type:        c.PostForm("category"),
		Description: c.PostForm("description"),
		Lat:         parseCoordinate(c.PostForm("latitude")),
		Lng:         parseCoordinate(c.PostForm("longitude")),
		City:        strings.TrimSpace(c.PostForm("city")),
	}

	id, err := a.store.InsertReport(c.Request.Context(), submission, a.clock())
	if err != nil {
		a.metrics.observeSubmission("error")
		a.log.Error("save report failed", "city", submission.City, "type", submission.Type, "error", err)
		redirectWithMessage(c, "/report", "error", errorReportSaveFailed)
		return
	}

	a.metrics.observeSubmission("success")
	a.log.Info("report submitted", "report_id", id, "city", submission.City, "type", submission.Type)
	redirectWithMessage(c, "/report", "notice", noticeReportSubmitted)
}

func (a *App) verifiedReportsHandler(c *gin.Context) {
	points, err := a.verifiedMapPoints(c.Request.Context())
	if err != nil {
		a.log.Error("list verified reports failed", "error", err)
		writeAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func (a *App) mapPageHandler(c *gin.Context) {
	a.renderTemplate(c, http.StatusOK, templateMapPath, staticPageViewData{baseViewData: a.baseData(c, "Crime map")})
}

func (a *App) awarenessPageHandler(c *gin.Context) {
	a.renderTemplate(c, http.StatusOK, templateAwarenessPath, staticPageViewData{baseViewData: a.baseData(c, "Safety awareness")})
}

// parseCoordinate returns nil for blank or non-numeric input so the report is
// stored without a location instead of being rejected.
func parseCoordinate(raw string) *float64 {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil
	}
	return &value
}

func (a *App) renderTemplate(c *gin.Context, status int, contentTemplatePath string, data any) {
	templates, err := a.templates.templatesForRender(contentTemplatePath)
	if err != nil {
		c.String(http.StatusInternalServerError, "template error: %v", err)
		return
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if executeErr := templates.ExecuteTemplate(c.Writer, "layout", data); executeErr != nil {
		a.log.Error("render template failed", "template", contentTemplatePath, "error", executeErr)
		if !c.Writer.Written() {
			c.String(http.StatusInternalServerError, "render failure")
		}
	}
}

func (a *App) baseData(c *gin.Context, title string) baseViewData {
	var session *AdminSession
	if value, ok := c.Get(adminSessionContextKey); ok {
		if stored, castOK := value.(AdminSession); castOK {
			session = &stored
		}
	}

	return baseViewData{
		Title:         title,
		AppTitle:      appTitle,
		Session:       session,
		ErrorMessage:  strings.TrimSpace(c.Query("error")),
		NoticeMessage: strings.TrimSpace(c.Query("notice")),
	}
}

func redirectWithMessage(c *gin.Context, target, key, value string) {
	parsed, err := url.Parse(target)
	if err != nil || parsed.IsAbs() || parsed.Host != "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	query := parsed.Query()
	query.Del("error")
	query.Del("notice")
	query.Set(key, value)
	parsed.RawQuery = query.Encode()

	redirectURL := parsed.Path
	if parsed.RawQuery != "" {
		redirectURL += "?" + parsed.RawQuery
	}
	c.Redirect(http.StatusSeeOther, redirectURL)
}
