package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vidspark/internal/domain"
)

type generateResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// Generate accepts the multipart form the frontend submits and launches a
// generation session. The response is a 202 with the session id; the client
// polls Status for progress and the final artifact.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	req, err := a.requestFromForm(r)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			a.error(w, http.StatusUnprocessableEntity, "validation:"+verr.Field, verr.Message)
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	id, err := a.Orchestrator.Start(req)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			a.error(w, http.StatusUnprocessableEntity, "validation:"+verr.Field, verr.Message)
			return
		}
		a.Logger.Error().Err(err).Msg("start generation")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start generation")
		return
	}
	a.json(w, http.StatusAccepted, generateResponse{ID: id, State: "queued"})
}

// Status returns the session's current snapshot.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := a.Orchestrator.Store().Get(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	a.json(w, http.StatusOK, session.Snapshot())
}

// Cancel requests cooperative cancellation of a running session. In-flight
// remote calls finish; no further work starts.
func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	session, err := a.Orchestrator.Store().Get(id)
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "unknown session")
		return
	}
	session.Cancel()
	a.json(w, http.StatusAccepted, map[string]string{"id": id, "state": "canceling"})
}

func (a *App) requestFromForm(r *http.Request) (domain.GenerationRequest, error) {
	var req domain.GenerationRequest
	req.ID = uuid.NewString()
	req.UserPrompt = strings.TrimSpace(r.FormValue("prompt"))

	file, header, err := r.FormFile("image")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			return req, &domain.ValidationError{Field: "image", Message: "could not read uploaded image"}
		}
		req.Source = domain.SourceImage{
			Data:     data,
			MIME:     header.Header.Get("Content-Type"),
			Filename: header.Filename,
		}
	}

	move, ok := domain.NormalizeCameraMove(r.FormValue("camera"))
	if !ok && strings.TrimSpace(r.FormValue("camera")) != "" {
		return req, &domain.ValidationError{Field: "camera", Message: "unknown camera move"}
	}
	req.CameraMove = move
	req.MotionIntensity = domain.NormalizeIntensity(r.FormValue("motion"))
	req.Style = domain.NormalizeStyle(r.FormValue("style"))

	durationRaw := strings.TrimSpace(r.FormValue("duration"))
	if durationRaw == "" {
		req.DurationSeconds = 4
	} else {
		seconds, err := strconv.ParseFloat(durationRaw, 64)
		if err != nil {
			return req, &domain.ValidationError{Field: "duration", Message: "duration must be a number of seconds"}
		}
		req.DurationSeconds = seconds
	}

	backend := strings.TrimSpace(r.FormValue("backend"))
	if backend == "" {
		backend = string(domain.BackendLocal)
	}
	req.Backend = domain.Backend(backend)
	req.Provider = strings.TrimSpace(r.FormValue("provider"))
	return req, nil
}
