package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux returns a mux serving /healthz and the static directory under /static/.
func NewMux(db *sql.DB, staticDir string, mqtt MQTTStatus) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, mqtt)
	if staticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}
	return mux
}
