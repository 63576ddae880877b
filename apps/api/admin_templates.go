package main

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

const (
	templateLayoutPath         = "templates/layout.tmpl"
	templateDashboardPath      = "templates/dashboard.tmpl"
	templateReportPath         = "templates/report.tmpl"
	templateMapPath            = "templates/map.tmpl"
	templateAwarenessPath      = "templates/awareness.tmpl"
	templateAdminLoginPath     = "templates/admin_login.tmpl"
	templateAdminDashboardPath = "templates/admin_dashboard.tmpl"
)

type templateRenderer struct {
	env string
}

func newTemplateRenderer(env string) *templateRenderer {
	return &templateRenderer{
		env: env,
	}
}

func (r *templateRenderer) templatesForRender(contentTemplatePath string) (*template.Template, error) {
	var sourceFS fs.FS
	if r.env == "development" {
		sourceFS = os.DirFS(".")
	} else {
		sourceFS = templateFiles
	}

	templates, err := template.New("layout.tmpl").Funcs(template.FuncMap{
		"statusClass": statusClass,
	}).ParseFS(sourceFS, templateLayoutPath, contentTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return templates, nil
}

func statusClass(status string) string {
	switch status {
	case statusVerified:
		return "status-verified"
	case statusRejected:
		return "status-rejected"
	default:
		return "status-pending"
	}
}
