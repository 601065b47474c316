// Package views holds the embedded HTML templates and static assets.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/cppla/simpleblog/models"
	"github.com/cppla/simpleblog/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const dateLayout = "1/2/2006"

// Funcs are the helpers templates can call.
var Funcs = template.FuncMap{
	"renderMarkup": utils.RenderMarkup,
	// stored emits sanitizer output, which is already escaped
	"stored": func(s string) template.HTML { return template.HTML(s) },
	"formatDate": func(p models.Post) string {
		t := p.CreatedTime()
		if t.IsZero() {
			return ""
		}
		return t.Format(dateLayout)
	},
}

// Load parses every page template.
func Load() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// Static serves the bundled assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
