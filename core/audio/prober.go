package audio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// Prober reports the duration of an audio payload. Implementations that
// cannot determine it return an error; callers fall back to zero.
type Prober interface {
	ProbeDuration(payload io.Reader) (float32, error)
}

// FFprobeProber shells out to ffprobe, feeding the payload over stdin so no
// temporary file is needed.
type FFprobeProber struct {
	ffprobePath string
}

// NewFFprobeProber creates a prober. ffmpegPath may point at either ffmpeg
// or ffprobe; the ffprobe sibling is derived from it.
func NewFFprobeProber(ffmpegPath string) *FFprobeProber {
	return &FFprobeProber{
		ffprobePath: strings.Replace(ffmpegPath, "ffmpeg", "ffprobe", 1),
	}
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeDuration returns the payload duration in seconds.
func (p *FFprobeProber) ProbeDuration(payload io.Reader) (float32, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		"pipe:0",
	}

	cmd := exec.Command(p.ffprobePath, args...)
	cmd.Stdin = payload
	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe execution failed: %w\nFFprobe Error: %s", err, stderr.String())
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal(out.Bytes(), &probeData); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ffprobe output: %w\nFFprobe Output: %s", err, out.String())
	}

	if probeData.Format.Duration == "" {
		return 0, fmt.Errorf("duration not found in ffprobe output\nFFprobe Output: %s", out.String())
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 32)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration string %q: %w", probeData.Format.Duration, err)
	}

	return float32(duration), nil
}
