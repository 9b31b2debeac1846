package handlers

import (
	"net/http"

	"server/web"
)

// Assets serves the embedded single-page client. The file server resolves
// "/" to index.html on its own.
func (a *App) Assets() http.Handler {
	return http.FileServer(http.FS(web.Assets))
}
