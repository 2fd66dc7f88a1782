package ffmpeg

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFrameExtractor_Defaults(t *testing.T) {
	f := NewFrameExtractor("", 0)
	assert.Equal(t, "ffmpeg", f.path)
	assert.Equal(t, 1280, f.width)
}

func TestExtractFrame_MissingBinary(t *testing.T) {
	dir := t.TempDir()
	f := NewFrameExtractor(filepath.Join(dir, "no-such-ffmpeg"), 320)

	err := f.ExtractFrame(context.Background(), filepath.Join(dir, "in.mp4"), filepath.Join(dir, "out.jpg"))
	assert.Error(t, err)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "boom", lastLine([]byte("first\nsecond\nboom\n")))
	assert.Equal(t, "single", lastLine([]byte("single")))
}
