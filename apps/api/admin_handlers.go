package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

func (a *App) registerAdminRoutes(r *gin.Engine) {
	r.GET("/admin_login", a.adminLoginPageHandler)
	r.POST("/admin_login", a.adminLoginSubmitHandler)
	r.GET("/admin_logout", a.adminLogoutHandler)

	admin := r.Group("")
	admin.Use(a.requireAdminSessionHTML())
	{
		admin.GET("/admin_dashboard", a.adminDashboardPageHandler)
		admin.POST("/verify/:id", a.adminStatusSubmitHandler(statusVerified))
		admin.POST("/reject/:id", a.adminStatusSubmitHandler(statusRejected))
		admin.GET("/admin_export/:format", a.adminExportHandler)
	}
}

func (a *App) adminLoginPageHandler(c *gin.Context) {
	if token, err := c.Cookie(adminCookieName); err == nil {
		if _, verifyErr := a.verifyAdminSessionToken(token); verifyErr == nil {
			c.Redirect(http.StatusSeeOther, "/admin_dashboard")
			return
		}
	}

	a.renderTemplate(c, http.StatusOK, templateAdminLoginPath, adminLoginViewData{
		baseViewData: a.baseData(c, "Admin login"),
		Username:     strings.TrimSpace(c.Query("username")),
	})
}

func (a *App) adminLoginSubmitHandler(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")

	session, err := a.authenticateAdmin(c.Request.Context(), username, password)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			a.log.Info("admin login rejected", "username", username)
			redirectWithMessage(c, loginRetryPath(username), "error", errorInvalidCredentials)
			return
		}
		a.log.Error("admin login failed", "username", username, "error", err)
		redirectWithMessage(c, loginRetryPath(username), "error", errorLoginFailed)
		return
	}

	if err := a.startAdminSession(c, *session); err != nil {
		writeAPIError(c, err)
		return
	}

	a.log.Info("admin logged in", "username", session.Username, "role", session.Role, "city", session.City)
	c.Redirect(http.StatusSeeOther, "/admin_dashboard")
}

// loginRetryPath keeps the typed username so the form is pre-filled.
func loginRetryPath(username string) string {
	if username == "" {
		return "/admin_login"
	}
	return "/admin_login?" + url.Values{"username": {username}}.Encode()
}

func (a *App) adminLogoutHandler(c *gin.Context) {
	a.clearAdminSession(c)
	c.Redirect(http.StatusSeeOther, "/")
}

func (a *App) adminDashboardPageHandler(c *gin.Context) {
	session, err := getAdminSession(c)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/admin_login")
		return
	}

	scope, err := scopeForSession(session)
	if err != nil {
		a.renderScopeDenied(c)
		return
	}

	reports, counts, err := a.listModerationReports(c.Request.Context(), scope)
	if err != nil {
		a.log.Error("list moderation reports failed", "username", session.Username, "error", err)
		base := a.baseData(c, "Admin dashboard")
		base.ErrorMessage = errorReportsLoadFailed
		a.renderTemplate(c, http.StatusInternalServerError, templateAdminDashboardPath, adminDashboardViewData{
			baseViewData: base,
			ScopeLabel:   a.scopeLabel(scope),
			Reports:      []adminReportRowView{},
		})
		return
	}

	rows := make([]adminReportRowView, 0, len(reports))
	for _, report := range reports {
		rows = append(rows, adminReportRowView{
			ID:          report.ID,
			Type:        report.Type,
			Description: report.Description,
			City:        report.City,
			Location:    formatLocation(report.Lat, report.Lng),
			Date:        formatReportDate(report.CreatedAt),
			Status:      report.Status,
			CanVerify:   report.Status != statusVerified,
			CanReject:   report.Status != statusRejected,
		})
	}

	a.renderTemplate(c, http.StatusOK, templateAdminDashboardPath, adminDashboardViewData{
		baseViewData: a.baseData(c, "Admin dashboard"),
		ScopeLabel:   a.scopeLabel(scope),
		Counts:       counts,
		Reports:      rows,
	})
}

func (a *App) adminStatusSubmitHandler(status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := getAdminSession(c)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/admin_login")
			return
		}

		reportID, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			a.metrics.observeTransition(status, "invalid_id")
			c.Redirect(http.StatusSeeOther, "/admin_dashboard")
			return
		}

		applied, err := a.setReportStatus(c.Request.Context(), session, reportID, status)
		if err != nil {
			var apiErr *apiError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden {
				a.metrics.observeTransition(status, "forbidden")
				a.renderScopeDenied(c)
				return
			}
			a.metrics.observeTransition(status, "error")
			a.log.Error("report status update failed", "report_id", reportID, "status", status, "username", session.Username, "error", err)
			redirectWithMessage(c, "/admin_dashboard", "error", "Could not update report status.")
			return
		}

		if !applied {
			a.metrics.observeTransition(status, "not_found")
			c.Redirect(http.StatusSeeOther, "/admin_dashboard")
			return
		}

		a.metrics.observeTransition(status, "applied")
		a.log.Info("report status updated", "report_id", reportID, "status", status, "username", session.Username)
		c.Redirect(http.StatusSeeOther, "/admin_dashboard")
	}
}

func (a *App) renderScopeDenied(c *gin.Context) {
	base := a.baseData(c, "Admin dashboard")
	base.ErrorMessage = errorAdminScopeInvalid
	a.renderTemplate(c, http.StatusForbidden, templateAdminDashboardPath, adminDashboardViewData{
		baseViewData: base,
		Reports:      []adminReportRowView{},
	})
}

func (a *App) scopeLabel(scope Scope) string {
	if scope.IsAllCities() {
		return a.cfg.AllCitiesLabel
	}
	return scope.City()
}

func formatLocation(lat, lng *float64) string {
	if lat == nil || lng == nil {
		return "-"
	}
	return fmt.Sprintf("%.5f, %.5f", *lat, *lng)
}
