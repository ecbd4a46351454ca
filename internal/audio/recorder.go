// Package audio captures a short microphone clip for transcription.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SampleRate      = 16000
	Channels        = 1
	BitsPerSample   = 16
	DefaultDuration = 5 * time.Second
)

// CommandRunner runs an external program to completion
type CommandRunner func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, out)
	}
	return nil
}

// Recorder records WAV clips with SoX's rec
type Recorder struct {
	binary string
	dir    string
	run    CommandRunner
	logger *zap.Logger
}

// NewRecorder creates a recorder writing temporary clips to dir (os.TempDir() when empty).
func NewRecorder(binary, dir string, logger *zap.Logger) *Recorder {
	if binary == "" {
		binary = "rec"
	}
	if dir == "" {
		dir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{binary: binary, dir: dir, run: runCommand, logger: logger}
}

// Args returns the rec arguments for a clip of the given duration
func Args(path string, d time.Duration) []string {
	return []string{
		"-q",
		"-r", strconv.Itoa(SampleRate),
		"-c", strconv.Itoa(Channels),
		"-b", strconv.Itoa(BitsPerSample),
		path,
		"trim", "0", strconv.FormatFloat(d.Seconds(), 'f', -1, 64),
	}
}

// Record captures d of audio and returns the WAV bytes and a filename for upload.
// The temporary file is removed before returning.
func (r *Recorder) Record(ctx context.Context, d time.Duration) ([]byte, string, error) {
	if d <= 0 {
		d = DefaultDuration
	}
	name := "command-" + uuid.NewString() + ".wav"
	path := filepath.Join(r.dir, name)
	defer os.Remove(path)

	r.logger.Debug("recording", zap.Duration("duration", d), zap.String("path", path))
	if err := r.run(ctx, r.binary, Args(path, d)...); err != nil {
		return nil, "", fmt.Errorf("recording audio: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading recording: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("recording is empty")
	}
	return data, name, nil
}
