package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultBinary = "ffmpeg"
	DefaultStride = 8

	framePattern = "frame_%06d.jpg"
	audioRate    = 16000
)

var (
	// VideoExtensions are the accepted interview recording formats.
	VideoExtensions = []string{".mp4", ".avi", ".mkv", ".mov"}
	// ResumeExtensions are the accepted resume formats.
	ResumeExtensions = []string{".pdf"}

	ErrInvalidVideo  = errors.New("invalid video format")
	ErrInvalidResume = errors.New("resume must be a pdf")
)

// Image is one decoded video frame encoded as JPEG.
type Image struct {
	// Index is the position of the frame in the source video.
	Index int
	Data  []byte
}

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Config configures the ffmpeg wrapper.
type Config struct {
	Binary string `mapstructure:"ffmpeg"`
	Stride int    `mapstructure:"stride"`
	// TempDir is where intermediate frames are written. Empty means the OS default.
	TempDir string `mapstructure:"temp-dir"`
}

// FFmpeg samples frames and extracts audio by shelling out to ffmpeg.
type FFmpeg struct {
	cfg    Config
	runner Runner
	logger *zap.Logger
}

// New returns an FFmpeg using the system ffmpeg binary.
func New(cfg Config, logger *zap.Logger) *FFmpeg {
	return NewWithRunner(cfg, execRunner{}, logger)
}

// NewWithRunner returns an FFmpeg that runs commands through runner.
func NewWithRunner(cfg Config, runner Runner, logger *zap.Logger) *FFmpeg {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.Stride <= 0 {
		cfg.Stride = DefaultStride
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpeg{cfg: cfg, runner: runner, logger: logger}
}

// Sample decodes every stride-th frame (0, stride, 2*stride, ...) in order.
// A non-positive stride uses the configured one.
func (f *FFmpeg) Sample(ctx context.Context, videoPath string, stride int) ([]Image, error) {
	if stride <= 0 {
		stride = f.cfg.Stride
	}

	dir, err := os.MkdirTemp(f.cfg.TempDir, "frames-")
	if err != nil {
		return nil, fmt.Errorf("create frame directory: %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf(`select=not(mod(n\,%d))`, stride),
		"-vsync", "vfr",
		"-q:v", "2",
		filepath.Join(dir, framePattern),
	}

	if out, err := f.runner.Run(ctx, f.cfg.Binary, args...); err != nil {
		return nil, commandError("sample frames", err, out)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)

	images := make([]Image, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read frame %s: %w", name, err)
		}
		images = append(images, Image{Index: i * stride, Data: data})
	}

	f.logger.Debug("frames sampled",
		zap.String("video", filepath.Base(videoPath)),
		zap.Int("stride", stride),
		zap.Int("frames", len(images)),
	)

	return images, nil
}

// ExtractAudio writes the audio track as 16 kHz mono PCM WAV to wavPath.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, wavPath string) error {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(audioRate),
		"-acodec", "pcm_s16le",
		wavPath,
	}

	if out, err := f.runner.Run(ctx, f.cfg.Binary, args...); err != nil {
		return commandError("extract audio", err, out)
	}

	return nil
}

// ValidateVideo checks that the path has an accepted video extension.
func ValidateVideo(path string) error {
	if !hasExtension(path, VideoExtensions) {
		return fmt.Errorf("%w: %q", ErrInvalidVideo, filepath.Ext(path))
	}
	return nil
}

// ValidateResume checks that the path has an accepted resume extension.
func ValidateResume(path string) error {
	if !hasExtension(path, ResumeExtensions) {
		return fmt.Errorf("%w: %q", ErrInvalidResume, filepath.Ext(path))
	}
	return nil
}

func hasExtension(path string, allowed []string) bool {
	return slices.Contains(allowed, strings.ToLower(filepath.Ext(path)))
}

func commandError(action string, err error, output []byte) error {
	if msg := strings.TrimSpace(string(output)); msg != "" {
		return fmt.Errorf("%s: %w: %s", action, err, msg)
	}
	return fmt.Errorf("%s: %w", action, err)
}
