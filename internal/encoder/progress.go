package encoder

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"reencoder/internal/translate"
)

// Sample is one progress reading taken from encoder output.
type Sample struct {
	Elapsed time.Duration // media time encoded so far, 0 if unknown
	Percent float64       // 0..100, or <0 if unknown
	ETA     time.Duration // <0 if unknown
	Speed   float64       // media seconds per wall second, 0 if unknown
	FPS     float64       // 0 if unknown
}

// ProgressParser extracts progress from an encoder's output, one line at a
// time. Lines that carry no progress are ignored.
type ProgressParser interface {
	UpdateFromLine(line string) (Sample, bool)
}

// NewProgressParser returns the parser for e. total is the media duration
// of the input and may be zero; ffmpeg reports it in its banner.
func NewProgressParser(e translate.Engine, total time.Duration) ProgressParser {
	if e == translate.EngineHandBrake {
		return &HandBrakeProgress{Total: total}
	}
	return &FFmpegProgress{Total: total}
}

var (
	durationRE = regexp.MustCompile(`Duration:\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	timeRE     = regexp.MustCompile(`(?:^|\s)time=\s*(\d+:\d{2}:\d{2}(?:\.\d+)?)`)
	speedRE    = regexp.MustCompile(`speed=\s*([\d.]+)x`)
	fpsRE      = regexp.MustCompile(`(?:^|\s)fps=\s*([\d.]+)`)
)

// FFmpegProgress understands both the classic stats line ffmpeg writes to
// stderr and the key=value blocks written by -progress.
type FFmpegProgress struct {
	Total time.Duration

	// -progress block under construction
	outTime time.Duration
	speed   float64
	fps     float64
}

func (p *FFmpegProgress) UpdateFromLine(line string) (Sample, bool) {
	if m := durationRE.FindStringSubmatch(line); m != nil {
		if p.Total == 0 {
			if d, ok := parseClock(m[1]); ok {
				p.Total = d
			}
		}
		return Sample{}, false
	}

	if m := timeRE.FindStringSubmatch(line); m != nil {
		elapsed, ok := parseClock(m[1])
		if !ok {
			return Sample{}, false
		}
		var speed, fps float64
		if sm := speedRE.FindStringSubmatch(line); sm != nil {
			speed, _ = strconv.ParseFloat(sm[1], 64)
		}
		if fm := fpsRE.FindStringSubmatch(line); fm != nil {
			fps, _ = strconv.ParseFloat(fm[1], 64)
		}
		return p.sample(elapsed, speed, fps), true
	}

	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return Sample{}, false
	}
	val = strings.TrimSpace(val)
	switch key {
	case "out_time_us", "out_time_ms":
		// Both keys are in microseconds.
		if v, err := strconv.ParseInt(val, 10, 64); err == nil && v >= 0 {
			p.outTime = time.Duration(v) * time.Microsecond
		}
	case "out_time":
		if d, ok := parseClock(val); ok {
			p.outTime = d
		}
	case "speed":
		p.speed, _ = strconv.ParseFloat(strings.TrimSuffix(val, "x"), 64)
	case "fps":
		p.fps, _ = strconv.ParseFloat(val, 64)
	case "progress":
		s := p.sample(p.outTime, p.speed, p.fps)
		if val == "end" && p.Total > 0 {
			s.Percent, s.ETA = 100, 0
		}
		return s, true
	}
	return Sample{}, false
}

func (p *FFmpegProgress) sample(elapsed time.Duration, speed, fps float64) Sample {
	s := Sample{Elapsed: elapsed, Percent: -1, ETA: -1, Speed: speed, FPS: fps}
	if p.Total > 0 {
		s.Percent = clampPercent(float64(elapsed) / float64(p.Total) * 100)
		if speed > 0 {
			remaining := p.Total - elapsed
			if remaining < 0 {
				remaining = 0
			}
			s.ETA = time.Duration(float64(remaining) / speed)
		}
	}
	return s
}

var (
	hbTaskRE   = regexp.MustCompile(`Encoding: task \d+ of \d+, ([\d.]+) ?%`)
	hbFPSRE    = regexp.MustCompile(`\(([\d.]+) fps`)
	hbETAHmsRE = regexp.MustCompile(`ETA (\d+)h(\d+)m(\d+)s`)
	hbETAClock = regexp.MustCompile(`ETA (\d+):(\d{2}):(\d{2})`)
)

// HandBrakeProgress reads HandBrakeCLI's "Encoding: task 1 of 1, 45.67 %"
// lines. The ETA may be written as 00h12m34s or 00:12:34.
type HandBrakeProgress struct {
	Total time.Duration
}

func (p *HandBrakeProgress) UpdateFromLine(line string) (Sample, bool) {
	m := hbTaskRE.FindStringSubmatch(line)
	if m == nil {
		return Sample{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Sample{}, false
	}
	s := Sample{Percent: clampPercent(pct), ETA: -1}
	if fm := hbFPSRE.FindStringSubmatch(line); fm != nil {
		s.FPS, _ = strconv.ParseFloat(fm[1], 64)
	}
	if em := hbETAHmsRE.FindStringSubmatch(line); em != nil {
		s.ETA = hms(em[1], em[2], em[3])
	} else if em := hbETAClock.FindStringSubmatch(line); em != nil {
		s.ETA = hms(em[1], em[2], em[3])
	}
	if p.Total > 0 {
		s.Elapsed = time.Duration(float64(p.Total) * s.Percent / 100)
	}
	return s, true
}

// parseClock parses HH:MM:SS with optional fractional seconds.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	sec, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || sec < 0 {
		return 0, false
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	return d + time.Duration(sec*float64(time.Second)+0.5), true
}

func hms(h, m, s string) time.Duration {
	hi, _ := strconv.Atoi(h)
	mi, _ := strconv.Atoi(m)
	si, _ := strconv.Atoi(s)
	return time.Duration(hi)*time.Hour + time.Duration(mi)*time.Minute + time.Duration(si)*time.Second
}

func clampPercent(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
