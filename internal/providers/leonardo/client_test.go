package leonardo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"logobatch/internal/domain"
)

func newTestClient(t *testing.T, router http.Handler) *Client {
	t.Helper()
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	client, err := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL + "/api/rest/v1/"})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func writeReference(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reference.png")
	if err := os.WriteFile(path, []byte("png-bytes"), 0o644); err != nil {
		t.Fatalf("write reference: %v", err)
	}
	return path
}

func TestUploadInitImageSendsMultipart(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/rest/v1/init-image", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, header, err := req.FormFile("init_image")
		if err != nil {
			t.Errorf("missing init_image field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "png-bytes" {
			t.Errorf("file content = %q", data)
		}
		if header.Filename != "reference.png" {
			t.Errorf("file name = %q", header.Filename)
		}
		if got := req.FormValue("filename"); got != "reference.png" {
			t.Errorf("filename field = %q", got)
		}
		_, _ = io.WriteString(w, `{"init_image_id":"ref-1"}`)
	})

	client := newTestClient(t, r)
	id, err := client.UploadInitImage(context.Background(), writeReference(t))
	if err != nil {
		t.Fatalf("UploadInitImage error: %v", err)
	}
	if id != "ref-1" {
		t.Fatalf("id = %q, want ref-1", id)
	}
}

func TestUploadInitImageAcceptsEnvelope(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/rest/v1/init-image", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"uploadInitImage":{"id":"ref-2","url":"https://s3/presigned"}}`)
	})

	client := newTestClient(t, r)
	id, err := client.UploadInitImage(context.Background(), writeReference(t))
	if err != nil {
		t.Fatalf("UploadInitImage error: %v", err)
	}
	if id != "ref-2" {
		t.Fatalf("id = %q, want ref-2", id)
	}
}

func TestUploadInitImageFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantPayload string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"invalid api key"}`, wantPayload: `{"error":"invalid api key"}`},
		{name: "missing id", status: http.StatusOK, body: `{}`},
		{name: "garbage", status: http.StatusOK, body: `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/api/rest/v1/init-image", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			client := newTestClient(t, r)
			_, err := client.UploadInitImage(context.Background(), writeReference(t))
			if !errors.Is(err, domain.ErrUpload) {
				t.Fatalf("error = %v, want ErrUpload", err)
			}
			payload, ok := domain.RemotePayload(err)
			if tt.wantPayload != "" && (!ok || payload != tt.wantPayload) {
				t.Fatalf("payload = %q, %v", payload, ok)
			}
			if tt.wantPayload == "" && ok {
				t.Fatalf("unexpected payload %q", payload)
			}
		})
	}
}

func TestUploadInitImageMissingFile(t *testing.T) {
	client, _ := NewClient(Options{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	_, err := client.UploadInitImage(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, domain.ErrUpload) {
		t.Fatalf("error = %v, want ErrUpload", err)
	}
}

func TestStartGenerationPayload(t *testing.T) {
	var captured generationPayload
	r := chi.NewRouter()
	r.Post("/api/rest/v1/generations", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if err := json.NewDecoder(req.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = io.WriteString(w, `{"sdGenerationJob":{"generationId":"job-1","apiCreditCost":4}}`)
	})

	client := newTestClient(t, r)
	prompt := BuildPrompt("royal blue")
	id, err := client.StartGeneration(context.Background(), GenerationRequest{Prompt: prompt, InitImageID: "ref-1"})
	if err != nil {
		t.Fatalf("StartGeneration error: %v", err)
	}
	if id != "job-1" {
		t.Fatalf("id = %q, want job-1", id)
	}

	want := generationPayload{
		ModelID:      DefaultModelID,
		Prompt:       prompt,
		InitImageID:  "ref-1",
		InitStrength: 0.5,
		Width:        512,
		Height:       512,
		NumImages:    1,
		PresetStyle:  "DYNAMIC",
		Alchemy:      true,
		ControlNets: []controlNet{{
			InitImageID:    "ref-1",
			InitImageType:  "UPLOADED",
			PreprocessorID: 67,
			StrengthType:   "High",
		}},
	}
	if diff := cmp.Diff(want, captured); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestStartGenerationErrors(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/rest/v1/generations", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":"rate limited"}`)
	})
	client := newTestClient(t, r)

	_, err := client.StartGeneration(context.Background(), GenerationRequest{Prompt: "p", InitImageID: "ref-1"})
	if !errors.Is(err, domain.ErrGenerationRequest) {
		t.Fatalf("error = %v, want ErrGenerationRequest", err)
	}
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected APIError with 429, got %v", err)
	}

	_, err = client.StartGeneration(context.Background(), GenerationRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrGenerationRequest) {
		t.Fatalf("missing init image id: error = %v", err)
	}
}

func TestGetGeneration(t *testing.T) {
	tests := []struct {
		name string
		body string
		want domain.GenerationJob
	}{
		{
			name: "top level pending",
			body: `{"status":"pending","generated_images":[]}`,
			want: domain.GenerationJob{ID: "job-1", Status: domain.JobPending},
		},
		{
			name: "top level succeeded",
			body: `{"status":"succeeded","generated_images":[{"url":"http://x/img.png"}]}`,
			want: domain.GenerationJob{ID: "job-1", Status: domain.JobSucceeded, ResultURL: "http://x/img.png"},
		},
		{
			name: "envelope complete",
			body: `{"generations_by_pk":{"id":"job-1","status":"COMPLETE","generated_images":[{"url":" "},{"url":"http://x/2.png"}]}}`,
			want: domain.GenerationJob{ID: "job-1", Status: domain.JobSucceeded, ResultURL: "http://x/2.png"},
		},
		{
			name: "envelope failed",
			body: `{"generations_by_pk":{"status":"FAILED"}}`,
			want: domain.GenerationJob{ID: "job-1", Status: domain.JobFailed},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/api/rest/v1/generations/{id}", func(w http.ResponseWriter, req *http.Request) {
				if got := chi.URLParam(req, "id"); got != "job-1" {
					t.Errorf("id = %q", got)
				}
				_, _ = io.WriteString(w, tt.body)
			})
			client := newTestClient(t, r)
			job, err := client.GetGeneration(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("GetGeneration error: %v", err)
			}
			if diff := cmp.Diff(tt.want, job); diff != "" {
				t.Fatalf("job mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGetGenerationServerError(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/rest/v1/generations/{id}", func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	client := newTestClient(t, r)
	_, err := client.GetGeneration(context.Background(), "job-1")
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected APIError 502, got %v", err)
	}
}

func TestDownload(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/img.png", func(w http.ResponseWriter, req *http.Request) {
		if got := req.Header.Get("Authorization"); got != "" {
			t.Errorf("download must not send credentials, got %q", got)
		}
		_, _ = w.Write([]byte("image-bytes"))
	})
	r.Get("/gone.png", func(w http.ResponseWriter, req *http.Request) {
		http.NotFound(w, req)
	})
	ts := httptest.NewServer(r)
	defer ts.Close()

	client, _ := NewClient(Options{APIKey: "test-key", BaseURL: ts.URL})
	data, err := client.Download(context.Background(), ts.URL+"/img.png")
	if err != nil {
		t.Fatalf("Download error: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("data = %q", data)
	}

	if _, err := client.Download(context.Background(), ts.URL+"/gone.png"); !errors.Is(err, domain.ErrDownload) {
		t.Fatalf("error = %v, want ErrDownload", err)
	}
	if _, err := client.Download(context.Background(), "not a url"); !errors.Is(err, domain.ErrDownload) {
		t.Fatalf("error = %v, want ErrDownload", err)
	}
}

func TestClientMissingKey(t *testing.T) {
	client, _ := NewClient(Options{})
	if client.HasCredentials() {
		t.Fatalf("client without key must report no credentials")
	}
	if _, err := client.StartGeneration(context.Background(), GenerationRequest{Prompt: "p", InitImageID: "r"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
	if _, err := client.GetGeneration(context.Background(), "job-1"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("error = %v, want ErrMissingAPIKey", err)
	}
	if client.ModelID() != DefaultModelID {
		t.Fatalf("ModelID = %q", client.ModelID())
	}
}

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("  claret and   sky blue ")
	checks := []string{
		"layout of the reference image",
		"claret and sky blue color theme",
		"shield shape",
		"central soccer ball",
		"no text, no writing, no letters",
	}
	for _, expect := range checks {
		if !strings.Contains(got, expect) {
			t.Fatalf("prompt missing %q: %s", expect, got)
		}
	}
}
