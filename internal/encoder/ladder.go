package encoder

import "github.com/streamvault/media-pipeline/internal/models"

// ComputeLadder selects every catalog rung whose target height fits inside
// the source. A source smaller than the smallest rung still gets that rung,
// so every job produces at least one output.
func ComputeLadder(catalog []models.QualityRung, sourceHeight int) []models.QualityRung {
	var ladder []models.QualityRung
	for _, rung := range catalog {
		if rung.TargetHeight <= sourceHeight {
			ladder = append(ladder, rung)
		}
	}
	if len(ladder) == 0 && len(catalog) > 0 {
		smallest := catalog[0]
		for _, rung := range catalog[1:] {
			if rung.TargetHeight < smallest.TargetHeight {
				smallest = rung
			}
		}
		ladder = append(ladder, smallest)
	}
	return ladder
}
