package http

import (
	"embed"
	"io/fs"
	nethttp "net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed views
var views embed.FS

// NewViewEngine builds the html engine over the embedded templates. reload
// re-parses templates on every render and is meant for development.
func NewViewEngine(reload bool) *html.Engine {
	sub, err := fs.Sub(views, "views")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(nethttp.FS(sub), ".html")
	engine.Reload(reload)
	return engine
}
