package assistant

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hercure/internal/auth"
)

const maxAudioUpload = 10 << 20

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type InteractRequest struct {
	Input      string `json:"input"`
	VoiceInput bool   `json:"voiceInput"`
}

func (h *Handler) Interact(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req InteractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	reply, err := h.svc.Interact(r.Context(), userID, req.Input, req.VoiceInput)
	if err != nil {
		writeError(w, err, "AI interaction failed")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	turns, err := h.svc.History(r.Context(), userID)
	if err != nil {
		writeError(w, err, "Failed to load conversation")
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (h *Handler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.svc.ClearHistory(r.Context(), userID); err != nil {
		writeError(w, err, "Failed to clear conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation cleared"})
}

type TTSRequest struct {
	Text string `json:"text"`
}

func (h *Handler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req TTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	audioData, err := h.svc.SynthesizeSpeech(r.Context(), req.Text)
	if err != nil {
		writeError(w, err, "TTS failed")
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audioData)
}

type AudioReply struct {
	*Reply
	Text        string `json:"text"`
	AudioBase64 string `json:"audio_base64,omitempty"`
}

// HandleAudioInteract transcribes a voice message, answers it and returns
// the spoken reply alongside the text.
func (h *Handler) HandleAudioInteract(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		http.Error(w, "Invalid audio upload", http.StatusBadRequest)
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error retrieving audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		http.Error(w, "Failed to read audio file", http.StatusInternalServerError)
		return
	}

	// 1. Transcribe
	text, err := h.svc.TranscribeAudio(r.Context(), buf.Bytes())
	if err != nil {
		writeError(w, err, "Transcription failed")
		return
	}
	if text == "" {
		// Silence or no speech detected
		writeJSON(w, http.StatusOK, AudioReply{Reply: &Reply{Reasons: []string{}}})
		return
	}

	// 2. Answer as a voice interaction
	reply, err := h.svc.Interact(r.Context(), userID, text, true)
	if err != nil {
		writeError(w, err, "AI interaction failed")
		return
	}

	// 3. Speak the answer right away to save a roundtrip
	out := AudioReply{Reply: reply, Text: text}
	if audio, err := h.svc.SynthesizeSpeech(r.Context(), reply.Response); err == nil {
		out.AudioBase64 = base64.StdEncoding.EncodeToString(audio)
	} else {
		log.Printf("tts for user %s: %v", userID, err)
	}
	writeJSON(w, http.StatusOK, out)
}

// writeError maps the assistant error taxonomy onto HTTP statuses. Server
// errors are answered with a generic message only.
func writeError(w http.ResponseWriter, err error, message string) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		http.Error(w, vErr.Error(), http.StatusBadRequest)
		return
	}
	log.Printf("%s: %v", message, err)
	http.Error(w, message, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/interact", h.Interact)
	r.Post("/interact/audio", h.HandleAudioInteract)
	r.Get("/conversation", h.GetConversation)
	r.Delete("/conversation", h.ClearConversation)
	r.Post("/tts", h.HandleTTS)
}
