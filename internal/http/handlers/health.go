package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

type clientLogRequest struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ClientLog records a log line sent by the browser client.
func (a *App) ClientLog(w http.ResponseWriter, r *http.Request) {
	var req clientLogRequest
	if !a.decode(w, r, &req) {
		return
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(req.Level)))
	if err != nil || level == zerolog.NoLevel || level > zerolog.ErrorLevel {
		level = zerolog.InfoLevel
	}
	ev := a.Logger.WithLevel(level).Str("source", "client")
	if ts := strings.TrimSpace(req.Timestamp); ts != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			ev = ev.Time("client_time", parsed)
		} else {
			ev = ev.Str("client_time", ts)
		}
	}
	ev.Msg(req.Message)
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
