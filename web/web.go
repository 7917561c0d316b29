package web

import (
	"embed"
	"html/template"
)

// IndexTemplate 首页模板名称
const IndexTemplate = "index.html"

//go:embed templates/*.html
var templateFS embed.FS

// PageData 首页渲染数据
type PageData struct {
	Title         string
	Model         string
	RubricVersion string
	MaxUploadMB   int64
}

// Templates 解析内嵌的页面模板
func Templates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}
