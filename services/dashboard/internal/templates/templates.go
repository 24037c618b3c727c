package templates

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed *.tmpl
var files embed.FS

// Parse returns the dashboard templates with their helper funcs.
func Parse() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"bandStyle": func(width float64, color string) template.CSS {
			return template.CSS(fmt.Sprintf("width:%.4f%%;background:%s", width, color))
		},
		"needleStyle": func(percent float64) template.CSS {
			return template.CSS(fmt.Sprintf("left:%.4f%%", percent))
		},
	}).ParseFS(files, "*.tmpl")
}
