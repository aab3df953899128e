package battle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arena-battle-system/models"
)

func TestDefaultTemplates(t *testing.T) {
	p := DefaultTemplates()

	for _, st := range Stages {
		if len(p.Elimination[st]) == 0 {
			t.Fatalf("no elimination lines for %s", st)
		}
	}
	if len(p.Revive) == 0 || len(p.Winner) == 0 {
		t.Fatalf("revive=%d winner=%d", len(p.Revive), len(p.Winner))
	}
}

func TestDefaultTemplates_RenderClean(t *testing.T) {
	p := DefaultTemplates()

	var all []string
	for _, st := range Stages {
		all = append(all, p.Elimination[st]...)
	}
	all = append(all, p.Revive...)
	all = append(all, p.Winner...)

	for _, tpl := range all {
		for _, attacker := range []string{"Kora", ""} {
			out := Render(tpl, "Vex", attacker)
			if strings.ContainsAny(out, "{}") {
				t.Errorf("unresolved placeholder in %q", out)
			}
		}
	}
}

func TestRender(t *testing.T) {
	got := Render("{victim} vs {attacker}, {victim} again", "Vex", "")
	if got != "Vex vs THE ARENA, Vex again" {
		t.Fatalf("Render = %q", got)
	}
}

func TestPick_SharedAndFallbackPools(t *testing.T) {
	p := &TemplatePool{
		Elimination: map[Stage][]string{StageMidBattle: {"mid"}},
		Revive:      []string{"back"},
		Winner:      []string{"crowned"},
	}
	s := NewSampler(2)

	if got := p.Pick(models.EventRevive, StageOpening, s); got != "back" {
		t.Errorf("revive = %q", got)
	}
	if got := p.Pick(models.EventWinner, StageFinalShowdown, s); got != "crowned" {
		t.Errorf("winner = %q", got)
	}
	if got := p.Pick(models.EventElimination, Stage("UNKNOWN"), s); got != "mid" {
		t.Errorf("unknown stage = %q", got)
	}
}

func TestParseTemplates_MissingStage(t *testing.T) {
	data := []byte(`
elimination:
  OPENING: ["a {victim}"]
  MID_BATTLE: ["b {victim}"]
revive: ["c {victim}"]
winner: ["d {victim}"]
`)
	if _, err := ParseTemplates(data); err == nil {
		t.Fatal("expected error for missing FINAL_SHOWDOWN")
	}
}

func TestLoadTemplatesFile_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "narratives.yaml")
	data := []byte(`
elimination:
  FINAL_SHOWDOWN: ["{attacker} ends {victim}"]
winner: ["{victim} takes it all"]
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := LoadTemplatesFile(path)
	if err != nil {
		t.Fatalf("LoadTemplatesFile: %v", err)
	}
	if got := p.Elimination[StageFinalShowdown]; len(got) != 1 || got[0] != "{attacker} ends {victim}" {
		t.Fatalf("final showdown = %v", got)
	}
	if got := p.Winner; len(got) != 1 {
		t.Fatalf("winner = %v", got)
	}
	def := DefaultTemplates()
	if len(p.Elimination[StageOpening]) != len(def.Elimination[StageOpening]) {
		t.Fatal("opening pool was not filled from defaults")
	}
	if len(p.Revive) != len(def.Revive) {
		t.Fatal("revive pool was not filled from defaults")
	}
}

func TestLoadTemplatesFile_Missing(t *testing.T) {
	if _, err := LoadTemplatesFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error")
	}
}
