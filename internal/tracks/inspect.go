package tracks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"reencoder/internal/util"
)

// Inspector runs the container inspection tools for a file.
type Inspector struct {
	Runner  util.CmdRunner
	Mkvinfo string // mkvinfo path; empty disables it
	FFprobe string // ffprobe path; empty disables it
	Logger  *zap.Logger
}

var matroskaExts = map[string]bool{".mkv": true, ".mka": true, ".mks": true, ".mk3d": true, ".webm": true}

// Inspect lists the tracks of path. Matroska files go through mkvinfo when
// it is configured; everything else goes through ffprobe.
func (in *Inspector) Inspect(ctx context.Context, path string) (Analysis, error) {
	runner := in.Runner
	if runner == nil {
		runner = util.NewDefaultRunner()
	}
	log := in.Logger
	if log == nil {
		log = zap.NewNop()
	}

	useMkvinfo := in.Mkvinfo != "" && matroskaExts[strings.ToLower(filepath.Ext(path))]
	switch {
	case useMkvinfo:
		res, err := runner.Run(ctx, util.CmdSpec{Path: in.Mkvinfo, Args: []string{path}, CaptureStdout: true, Logger: log})
		if err != nil {
			return Analysis{}, runError("mkvinfo", res, err)
		}
		return ParseMkvinfo(string(res.Stdout))
	case in.FFprobe != "":
		args := append(append([]string{}, FFprobeArgs...), path)
		res, err := runner.Run(ctx, util.CmdSpec{Path: in.FFprobe, Args: args, CaptureStdout: true, Logger: log})
		if err != nil {
			return Analysis{}, runError("ffprobe", res, err)
		}
		return ParseFFprobe(res.Stdout)
	default:
		return Analysis{}, &ParseError{Source: "inspect", Msg: fmt.Sprintf("no inspection tool available for %s", filepath.Base(path))}
	}
}

func runError(source string, res util.CmdResult, err error) error {
	var se *util.StartError
	if errors.As(err, &se) {
		return &ParseError{Source: source, Msg: "launch failed", Err: err}
	}
	msg := fmt.Sprintf("exit status %d", res.Code)
	if tail := lastLine(res.Stderr); tail != "" {
		msg += ": " + tail
	}
	return &ParseError{Source: source, Msg: msg, Err: err}
}

func lastLine(b []byte) string {
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
