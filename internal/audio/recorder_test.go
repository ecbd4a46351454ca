package audio

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	got := Args("/tmp/x.wav", 5*time.Second)
	want := []string{"-q", "-r", "16000", "-c", "1", "-b", "16", "/tmp/x.wav", "trim", "0", "5"}
	assert.Equal(t, want, got)

	assert.Equal(t, "2.5", Args("/tmp/x.wav", 2500*time.Millisecond)[10])
}

func TestRecorder_Record(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder("", dir, nil)

	var gotPath string
	r.run = func(_ context.Context, name string, args ...string) error {
		assert.Equal(t, "rec", name)
		gotPath = args[7]
		return os.WriteFile(gotPath, []byte("RIFF...."), 0644)
	}

	data, name, err := r.Record(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....", string(data))
	assert.True(t, strings.HasPrefix(name, "command-") && strings.HasSuffix(name, ".wav"), name)

	_, statErr := os.Stat(gotPath)
	assert.True(t, os.IsNotExist(statErr), "temporary clip should be removed")
}

func TestRecorder_Failures(t *testing.T) {
	r := NewRecorder("rec", t.TempDir(), nil)

	r.run = func(context.Context, string, ...string) error { return errors.New("no input device") }
	_, _, err := r.Record(context.Background(), time.Second)
	assert.ErrorContains(t, err, "no input device")

	r.run = func(_ context.Context, _ string, args ...string) error {
		return os.WriteFile(args[7], nil, 0644)
	}
	_, _, err = r.Record(context.Background(), time.Second)
	assert.ErrorContains(t, err, "empty")
}
