package battle

// Stage is the coarse phase of a battle. It drives pacing, odds and narration.
type Stage string

const (
	StageOpening       Stage = "OPENING"
	StageMidBattle     Stage = "MID_BATTLE"
	StageFinalShowdown Stage = "FINAL_SHOWDOWN"
)

// Stages lists every stage in battle order.
var Stages = []Stage{StageOpening, StageMidBattle, StageFinalShowdown}

const (
	openingRatio  = 0.7
	showdownRatio = 0.3
)

// ClassifyStage maps the alive fraction of a roster to a Stage.
// total must be at least 1; a non-positive total is treated as 1.
func ClassifyStage(alive, total int) Stage {
	if total < 1 {
		total = 1
	}
	ratio := float64(alive) / float64(total)
	switch {
	case ratio > openingRatio:
		return StageOpening
	case ratio > showdownRatio:
		return StageMidBattle
	default:
		return StageFinalShowdown
	}
}
