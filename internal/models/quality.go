package models

// QualityRung is one fixed target of the adaptive-streaming ladder. The
// catalog is ordered by ascending bitrate; the set actually encoded for a
// given source is computed per job from the probed source height.
type QualityRung struct {
	Name         string `json:"name"`
	TargetWidth  int    `json:"target_width"`
	TargetHeight int    `json:"target_height"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
	// Bandwidth is the BANDWIDTH attribute advertised in the master
	// playlist, in bits per second.
	Bandwidth int `json:"bandwidth"`
}

func DefaultQualityCatalog() []QualityRung {
	return []QualityRung{
		{
			Name:         "540p",
			TargetWidth:  960,
			TargetHeight: 540,
			VideoBitrate: "1400k",
			AudioBitrate: "128k",
			Bandwidth:    1600000,
		},
		{
			Name:         "720p",
			TargetWidth:  1280,
			TargetHeight: 720,
			VideoBitrate: "2800k",
			AudioBitrate: "128k",
			Bandwidth:    3200000,
		},
		{
			Name:         "1080p",
			TargetWidth:  1920,
			TargetHeight: 1080,
			VideoBitrate: "5000k",
			AudioBitrate: "192k",
			Bandwidth:    5600000,
		},
	}
}
