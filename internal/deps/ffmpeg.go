package deps

import (
	"strings"

	"framecloak/internal/config"
)

// MediaRequirements lists the ffmpeg toolchain binaries a config points at.
func MediaRequirements(cfg *config.Config) []Requirement {
	ffmpeg, ffprobe := "ffmpeg", "ffprobe"
	if cfg != nil {
		if v := strings.TrimSpace(cfg.Media.FFmpegBinary); v != "" {
			ffmpeg = v
		}
		if v := strings.TrimSpace(cfg.Media.FFprobeBinary); v != "" {
			ffprobe = v
		}
	}
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpeg, Description: "Extracts frames and assembles lossless output"},
		{Name: "FFprobe", Command: ffprobe, Description: "Reads frame rate and stream layout", Optional: true},
	}
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}
