package battle

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"arena-battle-system/models"

	"gopkg.in/yaml.v3"
)

const (
	VictimPlaceholder   = "{victim}"
	AttackerPlaceholder = "{attacker}"

	// ArenaName stands in for the attacker when nobody is credited.
	ArenaName = "THE ARENA"
)

//go:embed narratives.yaml
var defaultTemplatesYAML []byte

// TemplatePool is the fixed fallback narration, keyed by intent type and stage.
type TemplatePool struct {
	Elimination map[Stage][]string `yaml:"elimination"`
	Revive      []string           `yaml:"revive"`
	Winner      []string           `yaml:"winner"`
}

var defaultTemplates = sync.OnceValues(func() (*TemplatePool, error) {
	return ParseTemplates(defaultTemplatesYAML)
})

// DefaultTemplates returns the embedded pool.
func DefaultTemplates() *TemplatePool {
	p, err := defaultTemplates()
	if err != nil {
		panic(fmt.Sprintf("battle: embedded narratives.yaml is invalid: %v", err))
	}
	return p
}

// ParseTemplates decodes a YAML pool and checks every key has at least one line.
func ParseTemplates(data []byte) (*TemplatePool, error) {
	var p TemplatePool
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadTemplatesFile reads a YAML pool from disk. Stages or intent types the
// file leaves out are filled from the embedded pool.
func LoadTemplatesFile(path string) (*TemplatePool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates %s: %w", path, err)
	}

	var p TemplatePool
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode templates %s: %w", path, err)
	}

	def := DefaultTemplates()
	if p.Elimination == nil {
		p.Elimination = map[Stage][]string{}
	}
	for _, st := range Stages {
		if len(p.Elimination[st]) == 0 {
			p.Elimination[st] = def.Elimination[st]
		}
	}
	if len(p.Revive) == 0 {
		p.Revive = def.Revive
	}
	if len(p.Winner) == 0 {
		p.Winner = def.Winner
	}
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("templates %s: %w", path, err)
	}
	return &p, nil
}

func (p *TemplatePool) validate() error {
	for _, st := range Stages {
		if len(p.Elimination[st]) == 0 {
			return fmt.Errorf("no elimination templates for stage %s", st)
		}
	}
	if len(p.Revive) == 0 {
		return fmt.Errorf("no revive templates")
	}
	if len(p.Winner) == 0 {
		return fmt.Errorf("no winner templates")
	}
	return nil
}

// Pick samples a template for the intent type and stage. Revive and winner
// lines are shared by all stages.
func (p *TemplatePool) Pick(kind models.EventType, stage Stage, s Sampler) string {
	switch kind {
	case models.EventRevive:
		return pick(s, p.Revive)
	case models.EventWinner:
		return pick(s, p.Winner)
	default:
		lines := p.Elimination[stage]
		if len(lines) == 0 {
			lines = p.Elimination[StageMidBattle]
		}
		return pick(s, lines)
	}
}

// Render substitutes every placeholder. An empty attacker renders as ArenaName.
func Render(template, victim, attacker string) string {
	if attacker == "" {
		attacker = ArenaName
	}
	return strings.NewReplacer(
		VictimPlaceholder, victim,
		AttackerPlaceholder, attacker,
	).Replace(template)
}
