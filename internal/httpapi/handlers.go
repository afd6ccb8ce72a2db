package httpapi

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/auction-draft-backend/internal/engine"
	"github.com/DoyleJ11/auction-draft-backend/internal/hub"
	"github.com/DoyleJ11/auction-draft-backend/internal/types"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ServerMessage{Type: types.MsgError, Error: msg})
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := h.Sessions(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "stopping"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": n})
	}
}

// State returns the same payload viewers get over the socket.
func State(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := h.Lobby().State(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, types.ServerMessage{
			Type:    types.MsgAuctionUpdate,
			Version: snap.Version,
			Viewers: snap.Viewers,
			State:   &snap.View,
		})
	}
}

var exportHeader = []string{"team", "player", "role", "source_team", "nationality", "uncapped", "price"}

// Export writes sold players as CSV; the {team} URL param narrows it to
// one roster.
func Export(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		team := chi.URLParam(r, "team")
		rows, err := h.Lobby().ExportRows(r.Context(), team)
		switch {
		case errors.Is(err, engine.ErrUnknownTeam):
			writeError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}

		name := "auction.csv"
		if team != "" {
			name = team + ".csv"
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
		cw := csv.NewWriter(w)
		_ = cw.Write(exportHeader)
		for _, row := range rows {
			_ = cw.Write([]string{
				row.Team,
				row.Name,
				string(row.Role),
				row.SourceTeam,
				string(row.Nationality),
				strconv.FormatBool(row.Uncapped),
				row.Price.String(),
			})
		}
		cw.Flush()
	}
}

// requestLogging logs each request's method, path, status code and duration.
func requestLogging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
