package rest

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"conectaplus/internal/apperr"
	"conectaplus/internal/service"
	"conectaplus/internal/transport/ws"
)

// Container holds all dependencies for the router.
type Container struct {
	RoomService *service.RoomService
	WSHandler   *ws.Handler
}

// NewRouter creates the HTTP router. The real surface of this service
// is the WebSocket; REST exposes health and a read-only room snapshot.
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	r.Use(corsMiddleware)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/rooms/{code}", func(w http.ResponseWriter, r *http.Request) {
		snap, err := c.RoomService.Snapshot(mux.Vars(r)["code"])
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}).Methods("GET", "OPTIONS")

	v1.HandleFunc("/ws", c.WSHandler.Serve).Methods("GET")

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	kind := apperr.KindInternal
	if ae, ok := apperr.As(err); ok {
		message = ae.Message
		kind = ae.Kind
		switch ae.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindNotFound:
			status = http.StatusNotFound
		case apperr.KindForbidden:
			status = http.StatusForbidden
		case apperr.KindConflict:
			status = http.StatusConflict
		case apperr.KindInfrastructure:
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, map[string]string{"error": message, "code": string(kind)})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
