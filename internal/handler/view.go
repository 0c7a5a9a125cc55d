package handler

import (
	"io"
	"net/http"

	"ResteasyAPI/internal/apierr"
	"ResteasyAPI/internal/builder"
	"ResteasyAPI/internal/logger"
	"ResteasyAPI/internal/model"
	"ResteasyAPI/internal/processor"
	"ResteasyAPI/internal/request"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
)

// maxBodyBytes bounds a write payload.
const maxBodyBytes = 8 << 20

var responseJSON = sonic.Config{SortMapKeys: true, EscapeHTML: true}.Froze()

// View serves every route of one resource.
func (m *Manager) View(cfg *model.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, body, locations, err := m.serve(cfg, r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, loc := range locations {
			w.Header().Add("Location", loc)
		}
		writeJSON(w, status, body)
	})
}

func (m *Manager) serve(cfg *model.Config, r *http.Request) (int, any, []string, error) {
	in := request.Input{Route: mux.Vars(r), Query: r.URL.Query()}
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return 0, nil, nil, apierr.BadRequest("Invalid payload", "failed to read body: %v", err)
		}
		in.Body = body
	}

	p, err := request.NewParser(r.Method, m.reg, m.opts.Parser)
	if err != nil {
		return 0, nil, nil, err
	}
	d, err := p.Parse(cfg, in)
	if err != nil {
		return 0, nil, nil, err
	}

	run, err := m.proc.For(r.Method)
	if err != nil {
		return 0, nil, nil, err
	}
	if d.Action != "" {
		fn, ok := m.action(cfg, r.Method, d.Action)
		if !ok {
			return 0, nil, nil, apierr.BadRequest("Invalid action", "unknown action %q for %s", d.Action, cfg.ResourceName())
		}
		run = processor.Func(fn)
	}

	res, err := run(r.Context(), d)
	if err != nil {
		return 0, nil, nil, err
	}

	switch {
	case res == nil || r.Method == http.MethodDelete:
		return http.StatusOK, builder.Document{}, nil, nil
	case r.Method == http.MethodPost && d.Action == "":
		return http.StatusCreated, builder.Build(res), builder.URLs(m.BasePath(res.Config), res), nil
	default:
		return http.StatusOK, builder.Build(res), nil, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	buf, err := responseJSON.Marshal(body)
	if err != nil {
		logger.Error("write_response_failed", map[string]any{"error": err.Error()})
		http.Error(w, "Failed to write response: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// writeError renders UnableToProcess as the errors envelope; anything else is
// logged and surfaced as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if u, ok := apierr.As(err); ok {
		logger.Debug("request_rejected", map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": u.StatusCode(),
			"detail": u.Detail,
		})
		writeJSON(w, u.StatusCode(), u.Envelope())
		return
	}
	logger.Error("request_failed", map[string]any{
		"method": r.Method,
		"path":   r.URL.Path,
		"error":  err.Error(),
	})
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Unknown error " + err.Error()})
}
