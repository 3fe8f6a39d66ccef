package encoder

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/streamvault/media-pipeline/internal/models"
)

const MasterPlaylistName = "master.m3u8"

// BuildMasterPlaylist synthesizes the top-level adaptive playlist. Variants
// are ordered by ascending bandwidth; players start low and switch up, so
// the ordering convention matters even though the format does not mandate it.
func BuildMasterPlaylist(rungs []models.QualityRung) string {
	sorted := make([]models.QualityRung, len(rungs))
	copy(sorted, rungs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Bandwidth < sorted[j].Bandwidth
	})

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, rung := range sorted {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d\n",
			rung.Bandwidth, rung.TargetWidth, rung.TargetHeight)
		fmt.Fprintf(&b, "%s/%s\n", rung.Name, RungPlaylistName)
	}
	return b.String()
}

func WriteMasterPlaylist(path string, rungs []models.QualityRung) error {
	return os.WriteFile(path, []byte(BuildMasterPlaylist(rungs)), 0o644)
}
