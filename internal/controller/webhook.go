package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Webhook exposes Controller over HTTP (spec §4.7 supplement): remote
// operators can pause/resume/skip/inject/abort a running scheduler
// without sharing a process with it. Routing is built on hector's
// chi-based HTTP server (pkg/server/http.go); bearer-token verification
// reuses pkg/auth/jwt.go's jwx parse-and-validate idiom, simplified from
// JWKS-backed provider verification to a single HMAC secret suited to a
// single self-hosted control channel.
type Webhook struct {
	ctrl   *Controller
	secret []byte // nil disables auth
}

// NewWebhook builds a Webhook. If secret is empty, requests are accepted
// unauthenticated — appropriate only for a loopback-bound listener.
func NewWebhook(ctrl *Controller, secret string) *Webhook {
	w := &Webhook{ctrl: ctrl}
	if secret != "" {
		w.secret = []byte(secret)
	}
	return w
}

// Routes mounts the control endpoints onto r.
func (w *Webhook) Routes(r chi.Router) {
	r.Use(w.authenticate)
	r.Post("/control/pause", w.handlePause)
	r.Post("/control/resume", w.handleResume)
	r.Post("/control/abort", w.handleAbort)
	r.Post("/control/skip", w.handleSkip)
	r.Post("/control/inject", w.handleInject)
	r.Get("/control/status", w.handleStatus)
}

func (w *Webhook) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if w.secret == nil {
			next.ServeHTTP(rw, r)
			return
		}
		raw := r.Header.Get("Authorization")
		token := strings.TrimPrefix(raw, "Bearer ")
		if token == raw {
			http.Error(rw, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := jwt.Parse([]byte(token), jwt.WithKey(jwa.HS256, w.secret), jwt.WithValidate(true)); err != nil {
			http.Error(rw, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func (w *Webhook) handlePause(rw http.ResponseWriter, r *http.Request) {
	w.ctrl.Pause()
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Webhook) handleResume(rw http.ResponseWriter, r *http.Request) {
	w.ctrl.Resume()
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Webhook) handleAbort(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.ctrl.Abort(body.Reason)
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Webhook) handleSkip(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		http.Error(rw, "path is required", http.StatusBadRequest)
		return
	}
	w.ctrl.Skip(body.Path)
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Webhook) handleInject(rw http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
		http.Error(rw, "text is required", http.StatusBadRequest)
		return
	}
	w.ctrl.Inject(body.Text)
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Webhook) handleStatus(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(w.ctrl.LastStatus())
}
