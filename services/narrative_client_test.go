package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"arena-battle-system/battle"
	"arena-battle-system/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNarrativeClient_Generate(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateContentRequest
	client := NewNarrativeClient(NarrativeClientConfig{
		BaseURL: "https://llm.example/v1beta",
		APIKey:  "secret",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			gotPath = req.URL.Path
			gotKey = req.Header.Get("x-goog-api-key")
			if err := json.NewDecoder(req.Body).Decode(&gotBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
			return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"  Kora "},{"text":"shatters Vex!"}]}}]}`), nil
		})},
	})

	text, err := client.Generate(context.Background(), battle.NarrativeContext{
		Kind:         models.EventElimination,
		Stage:        battle.StageMidBattle,
		Round:        4,
		VictimName:   "Vex",
		AttackerName: "Kora",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "Kora shatters Vex!" {
		t.Fatalf("text = %q", text)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || len(gotBody.Contents) != 1 {
		t.Fatalf("body = %+v", gotBody)
	}
	prompt := gotBody.Contents[0].Parts[0].Text
	for _, want := range []string{"Victim: Vex", "Attacker: Kora", "Stage: Mid Battle", "Round: 4", "Maximum 20 words"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestNarrativeClient_Prompts(t *testing.T) {
	c := NewNarrativeClient(NarrativeClientConfig{APIKey: "k"})
	tests := []struct {
		name string
		nc   battle.NarrativeContext
		want []string
	}{
		{"arena kill", battle.NarrativeContext{Kind: models.EventElimination, Stage: battle.StageFinalShowdown, VictimName: "Vex"},
			[]string{"Eliminated by arena hazard", "Stage: Final Showdown"}},
		{"revive", battle.NarrativeContext{Kind: models.EventRevive, VictimName: "Vex"},
			[]string{"Revived Player: Vex", "Maximum 15 words"}},
		{"winner", battle.NarrativeContext{Kind: models.EventWinner, VictimName: "Vex"},
			[]string{"Champion: Vex", "Maximum 25 words"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, prompt := c.prompt(tt.nc)
			for _, w := range tt.want {
				if !strings.Contains(prompt, w) {
					t.Errorf("prompt missing %q:\n%s", w, prompt)
				}
			}
		})
	}
}

func TestNarrativeClient_Failures(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		status int
		body   string
	}{
		{"missing key", "", 200, `{}`},
		{"server error", "k", 503, `{"error":"overloaded"}`},
		{"no text", "k", 200, `{"candidates":[{"content":{"parts":[{"text":"  "}]}}]}`},
		{"bad json", "k", 200, `not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewNarrativeClient(NarrativeClientConfig{
				APIKey: tt.apiKey,
				HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
					return jsonResponse(tt.status, tt.body), nil
				})},
			})
			if _, err := client.Generate(context.Background(), battle.NarrativeContext{Kind: models.EventRevive, VictimName: "Vex"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNarrativeClient_ArenaName(t *testing.T) {
	reply := `{"candidates":[{"content":{"parts":[{"text":"\"Void Sector\""}]}}]}`
	status := 200
	client := NewNarrativeClient(NarrativeClientConfig{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(status, reply), nil
		})},
	})

	if got := client.ArenaName(context.Background()); got != "Void Sector" {
		t.Fatalf("ArenaName = %q", got)
	}
	status = 500
	if got := client.ArenaName(context.Background()); got != fallbackArenaName {
		t.Fatalf("fallback = %q", got)
	}
}
