package watermark_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nastia-backend/internal/config"
	"nastia-backend/internal/models"
)

func tempArtifacts(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "nastia-*"))
	require.NoError(t, err)
	return matches
}

func TestVideo_PaidTierBypass(t *testing.T) {
	p := newProcessor(t)
	data := []byte("not a real video")

	for _, plan := range []string{models.PlanPlus, models.PlanPro, models.PlanAgency, models.PlanCriacao} {
		out := p.Video(data, plan, false)
		assert.Equal(t, data, out, "plan %s must not be transcoded", plan)
	}
}

func TestVideo_AnimationBypassPolicy(t *testing.T) {
	logoPath := filepath.Join(t.TempDir(), "logo.png")
	p := newProcessorWithPolicy(t, logoPath, config.VideoBypassPaidOrAnimation)
	data := []byte("not a real video")

	out := p.Video(data, models.PlanFree, true)

	assert.Equal(t, data, out, "image animation bypasses watermarking under this policy")
}

func TestVideo_DegradesToOriginalOnFailure(t *testing.T) {
	p := newProcessor(t)
	data := []byte("definitely not an mp4")

	out := p.Video(data, models.PlanFree, false)

	assert.Equal(t, data, out)
}

func TestVideo_TempFilesCleanedUp(t *testing.T) {
	p := newProcessor(t)
	before := tempArtifacts(t)

	// Transcode fails on garbage input; cleanup must still run.
	p.Video([]byte("garbage"), models.PlanFree, false)

	assert.Equal(t, before, tempArtifacts(t))
}
