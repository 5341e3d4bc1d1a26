package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/goccy/go-json"
)

var (
	ErrNoVideoStreams  = errors.New("no video streams found")
	ErrUnknownDuration = errors.New("duration not reported")
)

// DurationProber reads the playable duration of a video file.
type DurationProber interface {
	Probe(ctx context.Context, f *File) (time.Duration, error)
}

// FFProbe shells out to ffprobe.
type FFProbe struct {
	Path string
}

func NewFFProbe(path string) *FFProbe {
	if strings.TrimSpace(path) == "" {
		path = "ffprobe"
	}
	return &FFProbe{Path: path}
}

func (p *FFProbe) Probe(ctx context.Context, f *File) (time.Duration, error) {
	if f == nil || strings.TrimSpace(f.Path) == "" {
		return 0, fmt.Errorf("ffprobe: empty path")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		f.Path,
	)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", f.Name, err, strings.TrimSpace(stderr.String()))
	}

	result, err := parseProbeOutput(stdout.Bytes())
	if err != nil {
		return 0, err
	}
	return result.Duration, nil
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type ProbeResult struct {
	Duration    time.Duration
	VideoCodecs []string
}

func parseProbeOutput(payload []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	result := &ProbeResult{}
	var longestStream time.Duration
	for _, stream := range out.Streams {
		if stream.CodecType != "video" {
			continue
		}
		result.VideoCodecs = append(result.VideoCodecs, stream.CodecName)
		if d, ok := parseSeconds(stream.Duration); ok && d > longestStream {
			longestStream = d
		}
	}
	if len(result.VideoCodecs) == 0 {
		return nil, ErrNoVideoStreams
	}

	if d, ok := parseSeconds(out.Format.Duration); ok {
		result.Duration = d
	} else if longestStream > 0 {
		result.Duration = longestStream
	} else {
		return nil, ErrUnknownDuration
	}
	return result, nil
}

func parseSeconds(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" || value == "N/A" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}

// MP4Prober reads the movie header of ISO-BMFF containers (mp4, mov) without external tools.
type MP4Prober struct{}

func (MP4Prober) Probe(ctx context.Context, f *File) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	file, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer file.Close()

	info, err := mp4.Probe(file)
	if err != nil {
		return 0, fmt.Errorf("failed to read mp4 header of %s: %w", f.Name, err)
	}
	if info.Timescale == 0 {
		return 0, fmt.Errorf("%w: %s has no timescale", ErrUnknownDuration, f.Name)
	}

	seconds := float64(info.Duration) / float64(info.Timescale)
	return time.Duration(seconds * float64(time.Second)), nil
}

// ChainProber uses MP4Prober for ISO-BMFF content types and falls back to the next prober
// for everything else or when the header cannot be read.
type ChainProber struct {
	native   DurationProber
	fallback DurationProber
}

func NewChainProber(fallback DurationProber) *ChainProber {
	return &ChainProber{
		native:   MP4Prober{},
		fallback: fallback,
	}
}

func (c *ChainProber) Probe(ctx context.Context, f *File) (time.Duration, error) {
	if isISOBMFF(f.ContentType) {
		d, err := c.native.Probe(ctx, f)
		if err == nil {
			return d, nil
		}
		if c.fallback == nil {
			return 0, err
		}
	}
	if c.fallback == nil {
		return 0, fmt.Errorf("%w: no prober for %s", ErrUnknownDuration, f.ContentType)
	}
	return c.fallback.Probe(ctx, f)
}

func isISOBMFF(contentType string) bool {
	switch contentType {
	case "video/mp4", "video/quicktime", "video/mov", "video/3gpp", "video/x-m4v":
		return true
	default:
		return false
	}
}
