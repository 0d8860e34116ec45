package report

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"hercure/internal/auth"
	"hercure/internal/user"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	data, name, err := h.svc.Generate(r.Context(), userID)
	if errors.Is(err, user.ErrNotFound) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("generate report for %s: %v", userID, err)
		http.Error(w, "Failed to generate report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (h *Handler) Share(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	err := h.svc.Share(r.Context(), userID)
	switch {
	case errors.Is(err, ErrNoCareTeam):
		http.Error(w, "Report sharing is not available", http.StatusServiceUnavailable)
		return
	case errors.Is(err, user.ErrNotFound):
		http.Error(w, "User not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("share report for %s: %v", userID, err)
		http.Error(w, "Failed to share report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"Report shared with care team"}`))
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/report", h.Download)
	r.Post("/report/share", h.Share)
}
