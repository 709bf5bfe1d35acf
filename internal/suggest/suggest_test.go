package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func replyWith(t *testing.T, inner string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": inner}}}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestSuggestParsesAssignments(t *testing.T) {
	srv := replyWith(t, `{"assignments":[{"driverId":"d1","studentId":"s1"},{"driverId":"","studentId":"s2"}]}`)
	defer srv.Close()
	c := NewClient(srv.URL, "test-key")
	pairs, err := c.Suggest(context.Background(), "Science Fair",
		[]DriverCandidate{{ID: "d1", Name: "Jane", Seats: 2, Location: "North lot"}},
		[]StudentCandidate{{ID: "s1", Name: "Alex", Pickup: "Oak St"}})
	if err != nil {
		t.Fatal(err)
	}
	// pair with a blank id is dropped
	if len(pairs) != 1 || pairs[0].DriverID != "d1" || pairs[0].StudentID != "s1" {
		t.Fatalf("unexpected pairs: %v", pairs)
	}
}

func TestSuggestMalformedReplyIsError(t *testing.T) {
	srv := replyWith(t, `here are your assignments: d1 -> s1`)
	defer srv.Close()
	c := NewClient(srv.URL, "k")
	if _, err := c.Suggest(context.Background(), "E", nil, nil); err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
}

func TestSuggestEmptyReplyIsZeroPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "k")
	pairs, err := c.Suggest(context.Background(), "E", nil, nil)
	if err != nil || len(pairs) != 0 {
		t.Fatalf("expected zero pairs without error, got %v %v", pairs, err)
	}
}

func TestSuggestServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := NewClient(srv.URL, "k")
	if _, err := c.Suggest(context.Background(), "E", nil, nil); err == nil {
		t.Fatal("expected error for 500 reply")
	}
}

func TestBuildPromptCarriesCandidatesAndInstruction(t *testing.T) {
	p := buildPrompt("Field Day",
		[]DriverCandidate{{ID: "d1", Name: "Jane", Seats: 1, Location: "North lot"}},
		[]StudentCandidate{{ID: "s1", Name: "Alex", Pickup: "Oak St"}})
	for _, want := range []string{"Field Day", `"d1"`, `"s1"`, "Do not exceed it", "at most once"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
