package openai

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/scribecast/pkg/provider/stt"
)

const verboseResponse = `{
	"task": "transcribe",
	"language": "english",
	"duration": 1.5,
	"text": " Hello world.",
	"words": [
		{"word": "Hello", "start": 0.0, "end": 0.4},
		{"word": " world", "start": 0.5, "end": 1.1}
	]
}`

// uploadRecord captures the multipart fields of a transcription request.
type uploadRecord struct {
	auth     string
	fields   map[string][]string
	file     string
	filename string
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *uploadRecord) {
	t.Helper()
	rec := &uploadRecord{fields: map[string][]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.Error(w, "unexpected path "+r.URL.Path, http.StatusNotFound)
			return
		}
		rec.auth = r.Header.Get("Authorization")
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err == nil {
			mr := multipart.NewReader(r.Body, params["boundary"])
			for {
				part, err := mr.NextPart()
				if err != nil {
					break
				}
				b, _ := io.ReadAll(part)
				if part.FormName() == "file" {
					rec.file = string(b)
					rec.filename = part.FileName()
					continue
				}
				rec.fields[part.FormName()] = append(rec.fields[part.FormName()], string(b))
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNew_DefaultModel(t *testing.T) {
	p, err := New("key", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != DefaultModel {
		t.Errorf("model = %q, want %q", p.model, DefaultModel)
	}
}

func TestTranscribe_Success(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, verboseResponse)

	p, err := New("sk-test", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLanguage("en-US"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Transcribe(context.Background(), strings.NewReader("fake-wav"), stt.Request{Filename: "call.wav"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if rec.auth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", rec.auth)
	}
	if rec.file != "fake-wav" || rec.filename != "call.wav" {
		t.Errorf("file part = %q (%q)", rec.file, rec.filename)
	}
	checkField(t, rec, "model", "whisper-1")
	checkField(t, rec, "response_format", "verbose_json")
	checkField(t, rec, "language", "en")
	if got := strings.Join(rec.fields["timestamp_granularities[]"], ","); got != "word" {
		t.Errorf("timestamp_granularities[] = %q, want %q", got, "word")
	}

	if got := resp.Transcript(); got != "Hello world." {
		t.Errorf("Transcript = %q", got)
	}
	words := resp.Words()
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[1].Word != "world" || words[1].Start != 0.5 || words[1].End != 1.1 || words[1].Speaker != 0 {
		t.Errorf("word[1] = %+v", words[1])
	}
	if _, ok := resp.ProviderUtterances(); ok {
		t.Error("expected no provider utterances")
	}
	if resp.Metadata == nil || len(resp.Metadata.Models) != 1 || resp.Metadata.Models[0] != "whisper-1" {
		t.Errorf("Metadata = %+v, want model whisper-1", resp.Metadata)
	}
	if !strings.Contains(string(resp.Raw), `"task": "transcribe"`) {
		t.Error("expected Raw to hold the service payload")
	}
}

func TestTranscribe_RequestLanguageWins(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, verboseResponse)
	p, _ := New("k", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithLanguage("en"))
	if _, err := p.Transcribe(context.Background(), strings.NewReader("x"), stt.Request{Language: "de-DE"}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	checkField(t, rec, "language", "de")
}

func TestTranscribe_ServiceError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"error":{"message":"bad audio","type":"invalid_request_error"}}`)
	p, _ := New("k", "", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	_, err := p.Transcribe(context.Background(), strings.NewReader("x"), stt.Request{})
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry the status, got %v", err)
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	p, _ := New("k", "")
	_, err := p.Transcribe(context.Background(), strings.NewReader(""), stt.Request{})
	if !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestPrimarySubtag(t *testing.T) {
	tests := map[string]string{
		"en-US": "en",
		"pt_BR": "pt",
		"DE":    "de",
		"":      "",
	}
	for in, want := range tests {
		if got := primarySubtag(in); got != want {
			t.Errorf("primarySubtag(%q) = %q, want %q", in, got, want)
		}
	}
}

func checkField(t *testing.T, rec *uploadRecord, name, want string) {
	t.Helper()
	got := rec.fields[name]
	if len(got) != 1 || got[0] != want {
		t.Errorf("field %s = %v, want [%s]", name, got, want)
	}
}
