package watermark

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"nastia-backend/internal/config"
	"nastia-backend/internal/metrics"
	"nastia-backend/internal/models"
)

// Video overlays the logo at 15% of frame height, bottom-right with an 8px
// margin, re-encoding to h264/aac. Any failure degrades to the original
// bytes. Temp files are removed on every exit path.
func (p *Processor) Video(data []byte, plan string, isAnimation bool) []byte {
	if models.PaidPlan(plan) {
		return data
	}
	if p.videoBypass == config.VideoBypassPaidOrAnimation && isAnimation {
		return data
	}
	if p.logoPath == "" {
		return data
	}

	out, err := p.transcodeWithLogo(data)
	if err != nil {
		metrics.WatermarkDegraded.WithLabelValues(models.KindVideo).Inc()
		log.Error().Err(err).Msg("video watermark degraded to original bytes")
		return data
	}
	return out
}

func (p *Processor) transcodeWithLogo(data []byte) ([]byte, error) {
	in, err := os.CreateTemp("", "nastia-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	inPath := in.Name()
	defer os.Remove(inPath)

	if _, err := in.Write(data); err != nil {
		in.Close()
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}

	outPath := strings.TrimSuffix(inPath, ".mp4") + "_wm.mp4"
	defer os.Remove(outPath)

	height, err := probeHeight(inPath)
	if err != nil {
		return nil, err
	}
	logoH := height * videoLogoHeightPct / 100

	logo := ffmpeg.Input(p.logoPath).Filter("scale", ffmpeg.Args{fmt.Sprintf("-1:%d", logoH)})
	err = ffmpeg.Filter(
		[]*ffmpeg.Stream{ffmpeg.Input(inPath), logo},
		"overlay",
		ffmpeg.Args{fmt.Sprintf("main_w-overlay_w-%d:main_h-overlay_h-%d", videoMarginPx, videoMarginPx)},
	).
		Output(outPath, ffmpeg.KwArgs{
			"c:v":     "libx264",
			"c:a":     "aac",
			"preset":  "ultrafast",
			"threads": 1,
		}).
		OverWriteOutput().
		Silent(true).
		Run()
	if err != nil {
		return nil, fmt.Errorf("failed to encode watermarked video: %w", err)
	}

	result, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read watermarked video: %w", err)
	}
	return result, nil
}

func probeHeight(path string) (int, error) {
	probe, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("failed to probe video: %w", err)
	}

	var info struct {
		Streams []struct {
			CodecType string `json:"codec_type"`
			Height    int    `json:"height"`
		} `json:"streams"`
	}
	if err := json.Unmarshal([]byte(probe), &info); err != nil {
		return 0, fmt.Errorf("failed to parse probe output: %w", err)
	}

	for _, s := range info.Streams {
		if s.CodecType == "video" && s.Height > 0 {
			return s.Height, nil
		}
	}
	return 0, fmt.Errorf("no video stream found")
}
