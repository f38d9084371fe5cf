package encoder

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"reencoder/internal/tracks"
	"reencoder/internal/util"
)

// SubtitleExt returns the file extension for extracting a subtitle stream
// of the given codec without conversion. Codecs are matched by Matroska
// codec ID or ffprobe codec name.
func SubtitleExt(codec string) string {
	c := strings.ToLower(codec)
	switch {
	case strings.Contains(c, "ass"), strings.Contains(c, "ssa"):
		return ".ass"
	case strings.Contains(c, "utf8"), strings.Contains(c, "srt"), strings.Contains(c, "subrip"):
		return ".srt"
	case strings.Contains(c, "webvtt"):
		return ".vtt"
	}
	return ".mks"
}

// SubtitlePath returns a fresh path in dir for extracting t.
func SubtitlePath(dir string, t tracks.Track) string {
	return filepath.Join(dir, "sub-"+uuid.NewString()+SubtitleExt(t.Codec))
}

// ExtractSubtitle copies stream t of input into dest with ffmpeg, so it can
// be burned in with the subtitles filter.
func ExtractSubtitle(ctx context.Context, runner util.CmdRunner, ffmpeg, input string, t tracks.Track, dest string, logger *zap.Logger) error {
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", input,
		"-map", "0:" + strconv.Itoa(t.Index),
		"-c", "copy",
		"-y", dest,
	}
	res, err := runner.Run(ctx, util.CmdSpec{Path: ffmpeg, Args: args, Logger: logger})
	if err == nil {
		return nil
	}
	_ = util.RemoveIfExists(dest)
	var se *util.StartError
	if errors.As(err, &se) {
		return &LaunchError{Path: se.Path, Err: se}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &Failure{Code: res.Code, Tail: tailLines(string(res.Stderr), DefaultTailLines), Err: err}
}

func tailLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
