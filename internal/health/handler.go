package health

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hercure/internal/auth"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type SaveRecordRequest struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func (h *Handler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req SaveRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	t, err := ParseRecordType(req.Type)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := h.svc.SaveRecord(r.Context(), userID, t, req.Data); err != nil {
		log.Printf("save record for %s: %v", userID, err)
		http.Error(w, "Failed to save record", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Record saved"})
}

// saveForm decodes a typed form from the body and stores it.
func saveForm[F Form](h *Handler, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := auth.UserID(r.Context())
		if !ok {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		var form F
		if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		rec, _, err := h.svc.SaveForm(r.Context(), userID, form)
		if err != nil {
			log.Printf("save %s form for %s: %v", form.Type(), userID, err)
			http.Error(w, "Failed to save record", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": message, "id": rec.ID.String()})
	}
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	records, err := h.svc.Records(r.Context(), userID)
	if err != nil {
		log.Printf("list records for %s: %v", userID, err)
		http.Error(w, "Failed to load records", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *Handler) LatestAssessment(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	rec, err := h.svc.LatestAssessment(r.Context(), userID)
	if err != nil {
		log.Printf("latest assessment for %s: %v", userID, err)
		http.Error(w, "Failed to load assessment", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListSymptoms(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	entries, err := h.svc.Symptoms(r.Context(), userID)
	if err != nil {
		log.Printf("list symptoms for %s: %v", userID, err)
		http.Error(w, "Failed to load symptoms", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/", h.SaveRecord)
	r.Get("/", h.ListRecords)
	r.Post("/period", saveForm[PeriodForm](h, "Period data saved"))
	r.Post("/heart", saveForm[HeartForm](h, "Heart data saved"))
	r.Post("/pregnancy", saveForm[PregnancyForm](h, "Pregnancy data saved"))
	r.Post("/lifestyle", saveForm[LifestyleForm](h, "Lifestyle data saved"))
	r.Post("/assessment", saveForm[AssessmentForm](h, "Assessment saved"))
	r.Get("/assessment", h.LatestAssessment)
	r.Get("/symptoms", h.ListSymptoms)
}
