package encoder

import (
	"testing"
	"time"

	"reencoder/internal/translate"
)

func TestFFmpegProgress_UpdateFromLine(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string // processed in sequence; the last result is checked
		total       time.Duration
		wantOk      bool
		wantPercent float64
		wantElapsed time.Duration
		wantETA     time.Duration
		wantSpeed   float64
	}{
		{
			name:        "progress block",
			lines:       []string{"out_time_us=30000000", "speed=1.5x", "total_size=10485760", "progress=continue"},
			total:       60 * time.Second,
			wantOk:      true,
			wantPercent: 50,
			wantElapsed: 30 * time.Second,
			wantETA:     20 * time.Second,
			wantSpeed:   1.5,
		},
		{
			name:        "out_time_ms is microseconds",
			lines:       []string{"out_time_ms=15000000", "progress=continue"},
			total:       60 * time.Second,
			wantOk:      true,
			wantPercent: 25,
			wantElapsed: 15 * time.Second,
			wantETA:     -1,
		},
		{
			name:        "progress end",
			lines:       []string{"out_time=00:00:59.500000", "speed=2x", "progress=end"},
			total:       60 * time.Second,
			wantOk:      true,
			wantPercent: 100,
			wantElapsed: 59500 * time.Millisecond,
			wantETA:     0,
			wantSpeed:   2,
		},
		{
			name:        "classic stats line",
			lines:       []string{"frame= 1200 fps= 48 q=28.0 size=   10240kB time=00:00:50.00 bitrate=1677.7kbits/s speed=2.5x"},
			total:       100 * time.Second,
			wantOk:      true,
			wantPercent: 50,
			wantElapsed: 50 * time.Second,
			wantETA:     20 * time.Second,
			wantSpeed:   2.5,
		},
		{
			name: "duration from banner",
			lines: []string{
				"  Duration: 00:01:40.00, start: 0.000000, bitrate: 5000 kb/s",
				"frame=  600 fps=120 q=-1.0 size=    2048kB time=00:00:25.00 bitrate= 671.1kbits/s speed=5x",
			},
			wantOk:      true,
			wantPercent: 25,
			wantElapsed: 25 * time.Second,
			wantETA:     15 * time.Second,
			wantSpeed:   5,
		},
		{
			name:        "unknown total",
			lines:       []string{"frame=  600 fps=120 time=00:00:25.00 speed=N/A"},
			wantOk:      true,
			wantPercent: -1,
			wantElapsed: 25 * time.Second,
			wantETA:     -1,
		},
		{
			name:   "non-progress line",
			lines:  []string{"frame=100"},
			total:  60 * time.Second,
			wantOk: false,
		},
		{
			name:   "log line",
			lines:  []string{"[libx265 @ 0x55d] using cpu capabilities: MMX2 SSE2Fast"},
			total:  60 * time.Second,
			wantOk: false,
		},
		{
			name:   "negative start time",
			lines:  []string{"frame=    0 fps=0.0 q=0.0 size=       0kB time=-00:00:00.02 bitrate=N/A speed=N/A"},
			total:  60 * time.Second,
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &FFmpegProgress{Total: tt.total}
			var s Sample
			var ok bool
			for _, line := range tt.lines {
				s, ok = p.UpdateFromLine(line)
			}
			if ok != tt.wantOk {
				t.Fatalf("UpdateFromLine() ok = %v, want %v", ok, tt.wantOk)
			}
			if !tt.wantOk {
				return
			}
			if s.Percent != tt.wantPercent {
				t.Errorf("Percent = %v, want %v", s.Percent, tt.wantPercent)
			}
			if s.Elapsed != tt.wantElapsed {
				t.Errorf("Elapsed = %v, want %v", s.Elapsed, tt.wantElapsed)
			}
			if s.ETA != tt.wantETA {
				t.Errorf("ETA = %v, want %v", s.ETA, tt.wantETA)
			}
			if s.Speed != tt.wantSpeed {
				t.Errorf("Speed = %v, want %v", s.Speed, tt.wantSpeed)
			}
		})
	}
}

func TestFFmpegProgress_BannerDoesNotOverrideKnownTotal(t *testing.T) {
	p := &FFmpegProgress{Total: 200 * time.Second}
	p.UpdateFromLine("  Duration: 00:01:40.00, start: 0.000000, bitrate: 5000 kb/s")
	if p.Total != 200*time.Second {
		t.Errorf("Total = %v, want 200s", p.Total)
	}
}

func TestHandBrakeProgress_UpdateFromLine(t *testing.T) {
	tests := []struct {
		name        string
		line        string
		total       time.Duration
		wantOk      bool
		wantPercent float64
		wantETA     time.Duration
		wantFPS     float64
		wantElapsed time.Duration
	}{
		{
			name:        "eta with units",
			line:        "Encoding: task 1 of 1, 45.50 % (123.45 fps, avg 120.00 fps, ETA 00h12m34s)",
			wantOk:      true,
			wantPercent: 45.5,
			wantETA:     12*time.Minute + 34*time.Second,
			wantFPS:     123.45,
		},
		{
			name:        "eta as clock",
			line:        "Encoding: task 1 of 1, 10.00 % (30.00 fps, avg 29.00 fps, ETA 01:02:03)",
			total:       100 * time.Second,
			wantOk:      true,
			wantPercent: 10,
			wantETA:     time.Hour + 2*time.Minute + 3*time.Second,
			wantFPS:     30,
			wantElapsed: 10 * time.Second,
		},
		{
			name:        "no rate yet",
			line:        "Encoding: task 1 of 1, 0.12 %",
			wantOk:      true,
			wantPercent: 0.12,
			wantETA:     -1,
		},
		{
			name:   "other output",
			line:   "[12:00:01] work: average encoding speed for job is 120.5 fps",
			wantOk: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &HandBrakeProgress{Total: tt.total}
			s, ok := p.UpdateFromLine(tt.line)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if s.Percent != tt.wantPercent || s.ETA != tt.wantETA || s.FPS != tt.wantFPS || s.Elapsed != tt.wantElapsed {
				t.Errorf("got %+v", s)
			}
		})
	}
}

func TestNewProgressParser(t *testing.T) {
	if _, ok := NewProgressParser(translate.EngineHandBrake, 0).(*HandBrakeProgress); !ok {
		t.Error("handbrake engine should use HandBrakeProgress")
	}
	if _, ok := NewProgressParser(translate.EngineFFmpeg, 0).(*FFmpegProgress); !ok {
		t.Error("ffmpeg engine should use FFmpegProgress")
	}
}

func TestSubtitleExt(t *testing.T) {
	tests := map[string]string{
		"S_TEXT/ASS":        ".ass",
		"ssa":               ".ass",
		"S_TEXT/UTF8":       ".srt",
		"subrip":            ".srt",
		"S_TEXT/WEBVTT":     ".vtt",
		"S_HDMV/PGS":        ".mks",
		"hdmv_pgs_subtitle": ".mks",
	}
	for codec, want := range tests {
		if got := SubtitleExt(codec); got != want {
			t.Errorf("SubtitleExt(%q) = %q, want %q", codec, got, want)
		}
	}
}
