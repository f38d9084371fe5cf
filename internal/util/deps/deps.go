package deps

import (
	"fmt"
	"os"
	"os/exec"
)

// Tool names looked up on PATH when no explicit path is configured.
const (
	FFmpeg    = "ffmpeg"
	FFprobe   = "ffprobe"
	HandBrake = "HandBrakeCLI"
	Mkvinfo   = "mkvinfo"
)

// Find returns the path to a tool. If customPath is non-empty, it tries that
// path or looks it up in PATH; otherwise each name is looked up in order.
func Find(customPath string, names ...string) (string, error) {
	if customPath != "" {
		if fi, err := os.Stat(customPath); err == nil && !fi.IsDir() {
			return customPath, nil
		}
		if p, err := exec.LookPath(customPath); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("could not find %q", customPath)
	}
	for _, n := range names {
		if p, err := exec.LookPath(n); err == nil {
			return p, nil
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no tool name given")
	}
	return "", fmt.Errorf("could not find %s in PATH. Please install it or set its path in the config", names[0])
}

// FindFFmpeg returns the path to the ffmpeg binary.
func FindFFmpeg(customPath string) (string, error) {
	return Find(customPath, FFmpeg)
}

// FindFFprobe returns the path to the ffprobe binary.
func FindFFprobe(customPath string) (string, error) {
	return Find(customPath, FFprobe)
}

// FindHandBrake returns the path to HandBrakeCLI.
func FindHandBrake(customPath string) (string, error) {
	return Find(customPath, HandBrake, "handbrakecli", "HandBrakeCLI.exe")
}

// FindMkvinfo returns the path to mkvinfo (MKVToolNix).
func FindMkvinfo(customPath string) (string, error) {
	return Find(customPath, Mkvinfo, "mkvinfo.exe")
}
