package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"arena-battle-system/battle"
	"arena-battle-system/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	defaultNarrativeBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultNarrativeModel   = "gemini-2.5-flash"
	fallbackArenaName       = "Obsidian Core"
)

// NarrativeClientConfig configures the generateContent endpoint.
type NarrativeClientConfig struct {
	BaseURL    string
	Model      string
	APIKey     string
	HTTPClient *http.Client
}

// NarrativeClient generates battle narration through a Gemini-compatible
// generateContent API. It implements battle.Narrator.
type NarrativeClient struct {
	cfg NarrativeClientConfig
}

func NewNarrativeClient(cfg NarrativeClientConfig) *NarrativeClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultNarrativeBaseURL
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultNarrativeModel
	}
	return &NarrativeClient{cfg: cfg}
}

var stageDescriptions = map[battle.Stage]string{
	battle.StageOpening:       "early chaos of the battle",
	battle.StageMidBattle:     "intense mid-game conflict",
	battle.StageFinalShowdown: "dramatic final showdown with high tension",
}

// Generate asks the model for one line of narration for nc.
func (c *NarrativeClient) Generate(ctx context.Context, nc battle.NarrativeContext) (string, error) {
	system, prompt := c.prompt(nc)
	return c.generateContent(ctx, system, prompt)
}

// ArenaName asks the model for a short arena name, falling back to a fixed one.
func (c *NarrativeClient) ArenaName(ctx context.Context) string {
	name, err := c.generateContent(ctx, "",
		"Generate a single cool, 2-3 word futuristic arena name (e.g. 'Neon Grave', 'Void Sector', 'Echo Chamber', 'Shadow Forge'). Return only the name.")
	name = strings.Trim(strings.TrimSpace(name), "\"'")
	if err != nil || name == "" {
		return fallbackArenaName
	}
	return name
}

func (c *NarrativeClient) prompt(nc battle.NarrativeContext) (system, prompt string) {
	const announcer = "You are the dramatic announcer for an intense battle royale giveaway arena."
	var b strings.Builder

	switch nc.Kind {
	case models.EventRevive:
		b.WriteString("Generate a single dramatic revival narrative for a battle royale game.\n\n")
		fmt.Fprintf(&b, "Revived Player: %s\n\n", nc.VictimName)
		b.WriteString("Requirements:\n- Maximum 15 words\n- Miraculous and surprising tone\n- Make it feel like an impossible comeback\n- NO emojis\n\n")
		b.WriteString("Return only the narrative text, nothing else.")
		return announcer, b.String()

	case models.EventWinner:
		b.WriteString("Generate a single epic victory announcement for a battle royale champion.\n\n")
		fmt.Fprintf(&b, "Champion: %s\n\n", nc.VictimName)
		b.WriteString("Requirements:\n- Maximum 25 words\n- Triumphant and legendary tone\n- Celebrate the victory dramatically\n- Mention they've won the prize\n- NO emojis\n\n")
		b.WriteString("Return only the announcement text, nothing else.")
		return "You are the legendary announcer crowning the ultimate champion of the arena.", b.String()

	default:
		b.WriteString("Generate a single dramatic, intense battle royale elimination narrative.\n\n")
		fmt.Fprintf(&b, "Victim: %s\n", nc.VictimName)
		if nc.AttackerName == "" || nc.AttackerName == battle.ArenaName {
			b.WriteString("Eliminated by arena hazard\n")
		} else {
			fmt.Fprintf(&b, "Attacker: %s\n", nc.AttackerName)
		}
		fmt.Fprintf(&b, "Stage: %s (%s)\n", stageLabel(nc.Stage), stageDescriptions[nc.Stage])
		fmt.Fprintf(&b, "Round: %d\n\n", nc.Round)
		b.WriteString("Requirements:\n- Maximum 20 words\n- Intense and dramatic tone\n- Use vivid action words\n- Make it feel like an epic moment\n- NO emojis\n\n")
		b.WriteString("Return only the narrative text, nothing else.")
		return announcer + " Your narratives make every elimination feel epic.", b.String()
	}
}

// stageLabel turns FINAL_SHOWDOWN into "Final Showdown". Casers are not safe
// to share between goroutines, so each call builds its own.
func stageLabel(stage battle.Stage) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(stage)), "_", " "))
}

type generateContentPart struct {
	Text string `json:"text"`
}

type generateContentBlock struct {
	Role  string                `json:"role,omitempty"`
	Parts []generateContentPart `json:"parts"`
}

type generateContentRequest struct {
	SystemInstruction *generateContentBlock `json:"systemInstruction,omitempty"`
	Contents          []generateContentBlock `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content generateContentBlock `json:"content"`
	} `json:"candidates"`
}

func (c *NarrativeClient) generateContent(ctx context.Context, system, prompt string) (string, error) {
	apiKey := strings.TrimSpace(c.cfg.APIKey)
	if apiKey == "" {
		return "", fmt.Errorf("narrative api key is required")
	}

	body := generateContentRequest{
		Contents: []generateContentBlock{{Role: "user", Parts: []generateContentPart{{Text: prompt}}}},
	}
	if system != "" {
		body.SystemInstruction = &generateContentBlock{Parts: []generateContentPart{{Text: system}}}
	}
	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal narrative request: %w", err)
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", c.cfg.Model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("build narrative url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("build narrative request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Key travels only in a header so it never shows up in logged URLs.
	req.Header.Set("x-goog-api-key", apiKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("narrative request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return "", fmt.Errorf("read narrative error body: %w", err)
		}
		return "", fmt.Errorf("narrative request status %d: %s", res.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload generateContentResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode narrative response: %w", err)
	}
	for _, cand := range payload.Candidates {
		var text strings.Builder
		for _, part := range cand.Content.Parts {
			text.WriteString(part.Text)
		}
		if out := strings.TrimSpace(text.String()); out != "" {
			return out, nil
		}
	}
	return "", fmt.Errorf("narrative response had no text")
}
