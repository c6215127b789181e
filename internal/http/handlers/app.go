package handlers

import (
	"encoding/json"
	"net/http"

	"vidspark/internal/infra"
	"vidspark/internal/orchestrator"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Orchestrator   *orchestrator.Orchestrator
	Logger         infra.Logger
	MaxUploadBytes int64
}

// NewApp wires the handler container.
func NewApp(orch *orchestrator.Orchestrator, logger infra.Logger, maxUploadBytes int64) *App {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &App{Orchestrator: orch, Logger: logger, MaxUploadBytes: maxUploadBytes}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
