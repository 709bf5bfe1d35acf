// Package suggest calls the external assignment-suggestion service: an
// LLM endpoint that is handed drivers with spare seats and unmatched
// students and returns proposed pairs. The service only sees free-text
// location hints; all real bookkeeping stays in the match engine.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ridematch/internal/models"
)

// DriverCandidate is the driver payload sent to the service. Seats is
// the remaining capacity, not the declared one.
type DriverCandidate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Seats    int    `json:"seats"`
	Location string `json:"location"`
}

// StudentCandidate is the student payload sent to the service.
type StudentCandidate struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Pickup string `json:"pickup"`
	Notes  string `json:"notes"`
}

// Client posts generate-content requests to an LLM HTTP endpoint and
// parses the JSON assignment list out of the model's reply.
type Client struct {
	Endpoint string
	APIKey   string
	HTTP     *http.Client
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{Endpoint: endpoint, APIKey: apiKey, HTTP: &http.Client{Timeout: 20 * time.Second}}
}

const promptInstruction = `You are matching ride-share drivers with students for a school event. Assign students to drivers based on:
1. PROXIMITY: Prefer matching students whose pickup location is near the driver's area (from their notes).
2. AVAILABLE SEATS: Each driver can only take up to their "seats" count. Do not exceed it.`

const promptFooter = `Return ONLY valid JSON with this exact structure, no other text:
{"assignments":[{"driverId":"d1","studentId":"s1"},{"driverId":"d2","studentId":"s2"}]}
Use the actual ids from the data. Each student can appear at most once. Each driver's total assignments must not exceed their seats.`

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func buildPrompt(eventName string, drivers []DriverCandidate, students []StudentCandidate) string {
	db, _ := json.Marshal(drivers)
	sb, _ := json.Marshal(students)
	return fmt.Sprintf("%s\n\nEvent: %s\nDrivers (id, name, seats available, location/notes): %s\nStudents needing rides (id, name, pickup, notes): %s\n\n%s",
		promptInstruction, eventName, db, sb, promptFooter)
}

// Suggest returns the proposed pairs for the event, or an error when
// the call fails or the reply is not the promised JSON shape. A
// malformed reply applies zero assignments; there are no partial
// results.
func (c *Client) Suggest(ctx context.Context, eventName string, drivers []DriverCandidate, students []StudentCandidate) ([]models.Assignment, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(eventName, drivers, students)}}}},
		GenerationConfig: generationConfig{
			Temperature:      0.2,
			ResponseMimeType: "application/json",
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	url := c.Endpoint
	if c.APIKey != "" {
		url += "?key=" + c.APIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion service: status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("suggestion service: decode reply: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}
	text := out.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, nil
	}

	var parsed struct {
		Assignments []models.Assignment `json:"assignments"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("suggestion service: unparseable assignments: %w", err)
	}
	pairs := make([]models.Assignment, 0, len(parsed.Assignments))
	for _, a := range parsed.Assignments {
		if a.DriverID != "" && a.StudentID != "" {
			pairs = append(pairs, a)
		}
	}
	return pairs, nil
}
