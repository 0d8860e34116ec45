package assistant

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"hercure/internal/auth"
)

func newTestRouter(svc Service, userID uuid.UUID) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithUserID(req.Context(), userID)))
		})
	})
	RegisterRoutes(r, NewHandler(svc))
	return r
}

func TestHandlerInteract(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f.service(Options{}), uuid.New())

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"input":"I slept badly","voiceInput":true}`)
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interact", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["response"] != f.model.reply || got["riskLevel"] != "Normal" || got["textToSpeech"] != true {
		t.Fatalf("unexpected body %v", got)
	}
	if reasons, ok := got["reasons"].([]any); !ok || len(reasons) != 0 {
		t.Fatalf("expected empty reasons array, got %v", got["reasons"])
	}
}

func TestHandlerInteractErrors(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		fail  bool
		code  int
		reply string
	}{
		{name: "malformed", body: `{`, code: http.StatusBadRequest},
		{name: "empty input", body: `{"input":"  "}`, code: http.StatusBadRequest, reply: ErrEmptyMessage.Error()},
		{name: "model failure", body: `{"input":"hi"}`, fail: true, code: http.StatusInternalServerError, reply: "AI interaction failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			if tc.fail {
				f.model.err = errors.New("provider key sk-secret rejected")
			}
			router := newTestRouter(f.service(Options{}), uuid.New())

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interact", strings.NewReader(tc.body)))
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if tc.reply != "" && strings.TrimSpace(rec.Body.String()) != tc.reply {
				t.Fatalf("expected %q, got %q", tc.reply, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "sk-secret") {
				t.Fatalf("internal error details leaked: %s", rec.Body.String())
			}
		})
	}
}

func TestHandlerConversationLifecycle(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	router := newTestRouter(f.service(Options{}), userID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interact", strings.NewReader(`{"input":"hello"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("interact: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/conversation", nil))
	var turns []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&turns); err != nil {
		t.Fatalf("decode conversation: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/conversation", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Conversation cleared") {
		t.Fatalf("unexpected clear response %d %s", rec.Code, rec.Body.String())
	}
	if len(f.convs.turns[userID]) != 0 {
		t.Fatalf("conversation should be cleared")
	}
}

func TestHandlerTTS(t *testing.T) {
	router := newTestRouter(newFixture().service(Options{}), uuid.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(`{"text":"hello"}`)))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "audio/mpeg" || rec.Body.String() != "mp3" {
		t.Fatalf("unexpected tts response %d %q %q", rec.Code, rec.Header().Get("Content-Type"), rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tts", strings.NewReader(`{"text":""}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", rec.Code)
	}
}

func audioRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio", "voice.webm")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(data)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/interact/audio", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlerAudioInteract(t *testing.T) {
	f := newFixture()
	userID := uuid.New()
	router := newTestRouter(f.service(Options{}), userID)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, audioRequest(t, []byte("webm-bytes")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["text"] != "I feel tired" || got["response"] != f.model.reply || got["textToSpeech"] != true {
		t.Fatalf("unexpected body %v", got)
	}
	if got["audio_base64"] != base64.StdEncoding.EncodeToString([]byte("mp3")) {
		t.Fatalf("unexpected audio %v", got["audio_base64"])
	}
	if turns := f.convs.turns[userID]; len(turns) != 2 || turns[0].Content != "I feel tired" {
		t.Fatalf("transcript should be stored as the user turn, got %+v", turns)
	}
}

func TestHandlerAudioSilence(t *testing.T) {
	f := newFixture()
	f.stt.text = "   "
	router := newTestRouter(f.service(Options{}), uuid.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, audioRequest(t, []byte("silence")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f.model.calls != 0 {
		t.Fatalf("silence must not reach the model")
	}
}

func TestHandlerAudioMissingFile(t *testing.T) {
	router := newTestRouter(newFixture().service(Options{}), uuid.New())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/interact/audio", strings.NewReader("")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
