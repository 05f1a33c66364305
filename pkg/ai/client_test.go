package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fakeCompletions(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req oaiChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model == "" {
			t.Errorf("missing model")
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyzePhotoParsesFencedJSON(t *testing.T) {
	srv := fakeCompletions(t, "```json\n{\"name\":\"sourdough loaf\",\"category\":\"bakery\",\"condition\":\"fresh\"}\n```")
	defer srv.Close()

	c := New(srv.URL+"/v1", "", "test-model", time.Second)
	analysis, err := c.AnalyzePhoto(context.Background(), "data:image/jpeg;base64,AAAA")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if analysis.Name != "sourdough loaf" || analysis.Category != "bakery" {
		t.Fatalf("analysis = %+v", analysis)
	}
}

func TestSuggestPriceClampsNegative(t *testing.T) {
	srv := fakeCompletions(t, `{"price": -2, "rationale": "should be free"}`)
	defer srv.Close()

	c := New(srv.URL+"/v1", "", "test-model", time.Second)
	suggestion, err := c.SuggestPrice(context.Background(), "bread", "bakery", "")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	if suggestion.Price != 0 {
		t.Fatalf("price = %v, want clamped to 0", suggestion.Price)
	}
}

func TestGenerateDescriptionRequiresName(t *testing.T) {
	c := New("http://localhost:0/v1", "", "test-model", time.Second)
	if _, err := c.GenerateDescription(context.Background(), "  ", "bakery", ""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}

func TestCompleteSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1", "", "test-model", time.Second)
	if _, err := c.GenerateDescription(context.Background(), "bread", "bakery", ""); err == nil {
		t.Fatalf("expected api error")
	}
}
