package rag

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestOllamaEmbedder(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"embedding":[0.5,0.25,-1]}`))
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "all-minilm", time.Second)
	vec, err := e.Embed(context.Background(), "slope map")
	if err != nil {
		t.Fatalf("Embed error: %v", err)
	}
	if !reflect.DeepEqual(vec, []float64{0.5, 0.25, -1}) {
		t.Fatalf("unexpected vector %v", vec)
	}
	if got["model"] != "all-minilm" || got["prompt"] != "slope map" {
		t.Fatalf("unexpected request body %v", got)
	}
	if e.Name() != "ollama" || e.Model() != "all-minilm" {
		t.Fatalf("unexpected identity %s/%s", e.Name(), e.Model())
	}
}

func TestOllamaEmbedderErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		model   string
		wantErr bool
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `model not found`, model: "m"},
		{name: "empty vector", status: http.StatusOK, body: `{"embedding":[]}`, model: "m"},
		{name: "bad json", status: http.StatusOK, body: `{`, model: "m"},
		{name: "no model", status: http.StatusOK, body: `{"embedding":[1]}`, model: " "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			if _, err := NewOllamaEmbedder(srv.URL, tt.model, time.Second).Embed(context.Background(), "x"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
