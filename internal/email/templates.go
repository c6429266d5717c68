package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sync"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/base.html"

// mailData fills the shared layout. Content blocks come from the page
// template; CTA fields are optional.
type mailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

// pages holds every page template parsed together with the layout.
var pages = sync.OnceValues(func() (map[string]*template.Template, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		tmpl, err := template.ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse email template %s: %w", file, err)
		}
		out[path.Base(file)] = tmpl
	}
	return out, nil
})

func render(page string, data mailData) (string, error) {
	all, err := pages()
	if err != nil {
		return "", err
	}
	tmpl, ok := all[page]
	if !ok {
		return "", fmt.Errorf("unknown email template %s", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", page, err)
	}
	return buf.String(), nil
}
