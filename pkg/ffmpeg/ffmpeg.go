// Package ffmpeg 调用外部 ffmpeg 可执行文件从视频中截取画面。
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// FrameExtractor 截取单帧画面并写入 JPEG 文件。
type FrameExtractor struct {
	path  string
	width int
}

// NewFrameExtractor 创建 FrameExtractor。path 为空时使用 PATH 中的 ffmpeg。
func NewFrameExtractor(path string, width int) *FrameExtractor {
	if path == "" {
		path = "ffmpeg"
	}
	if width <= 0 {
		width = 1280
	}
	return &FrameExtractor{path: path, width: width}
}

// ExtractFrame 从 input 的第 1 秒截取一帧写入 output。视频短于 1 秒时退回到第一帧。
func (f *FrameExtractor) ExtractFrame(ctx context.Context, input, output string) error {
	err := f.run(ctx, "1", input, output)
	if err == nil && fileNotEmpty(output) {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := f.run(ctx, "0", input, output); err != nil {
		return err
	}
	if !fileNotEmpty(output) {
		return fmt.Errorf("ffmpeg 未生成画面: %s", input)
	}
	return nil
}

func (f *FrameExtractor) run(ctx context.Context, seek, input, output string) error {
	cmd := exec.CommandContext(ctx, f.path,
		"-y",
		"-ss", seek,
		"-i", input,
		"-frames:v", "1",
		"-vf", "scale="+strconv.Itoa(f.width)+":-2",
		"-q:v", "3",
		output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg 执行失败: %w: %s", err, lastLine(stderr.Bytes()))
	}
	return nil
}

func fileNotEmpty(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Size() > 0
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return string(b[i+1:])
	}
	return string(b)
}
