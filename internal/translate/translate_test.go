package translate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"reencoder/internal/preset"
	"reencoder/internal/tracks"
)

func containsSeq(args []string, seq ...string) bool {
	for i := 0; i+len(seq) <= len(args); i++ {
		if reflect.DeepEqual(args[i:i+len(seq)], seq) {
			return true
		}
	}
	return false
}

func mustPreset(t *testing.T, js string) preset.Preset {
	t.Helper()
	p, err := preset.Parse([]byte(js))
	if err != nil {
		t.Fatalf("preset.Parse: %v", err)
	}
	return p
}

func TestGenerate_H265Quality20(t *testing.T) {
	p := mustPreset(t, `{"PresetList":[{"VideoEncoder":"H.265","VideoQualitySlider":20}]}`)
	tmpl, notes, err := Generate(p, EngineFFmpeg)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("notes = %v", notes)
	}
	argv, err := tmpl.Instantiate(Values{Input: "/in/ep 1.mkv", Output: "/out/ep 1.mp4", AudioTrack: "1"})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	want := []string{
		"ffmpeg", "-hide_banner",
		"-i", "/in/ep 1.mkv",
		"-map", "0:v:0", "-map", "0:1",
		"-c:v", "libx265", "-crf", "20",
		"-preset", "medium", "-profile:v", "high", "-level", "4.0",
		"-vf", "scale='min(1920,iw)':'min(1080,ih)':force_original_aspect_ratio=decrease:force_divisible_by=2",
		"-color_range", "tv", "-pix_fmt", "yuv420p", "-g", "60",
		"-c:a", "aac", "-b:a", "160k", "-ac", "2",
		"-map_chapters", "0", "-map_metadata", "0",
		"-y", "/out/ep 1.mp4",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("argv:\n got %q\nwant %q", argv, want)
	}
	if !containsSeq(argv, "-c:v", "libx265", "-crf", "20") {
		t.Error("missing -c:v libx265 -crf 20")
	}
}

func TestGenerate_BurnSubtitleFile(t *testing.T) {
	p := mustPreset(t, `{"PresetList":[{"PictureWidth":0,"PictureHeight":0,"PictureDeblockPreset":"light"}]}`)
	tmpl, _, err := Generate(p, EngineFFmpeg)
	if err != nil {
		t.Fatal(err)
	}
	argv, err := tmpl.Instantiate(Values{Input: "in.mkv", Output: "out.mp4", AudioTrack: "1", SubtitleFile: "/tmp/sub's:1.ass"})
	if err != nil {
		t.Fatal(err)
	}
	if !containsSeq(argv, "-vf", `deblock=filter=weak,subtitles=/tmp/sub\\\'s\\:1.ass`) {
		t.Errorf("argv = %q", argv)
	}

	argv, err = tmpl.Instantiate(Values{Input: "in.mkv", Output: "out.mp4", AudioTrack: "1"})
	if err != nil {
		t.Fatal(err)
	}
	if !containsSeq(argv, "-vf", "deblock=filter=weak") {
		t.Errorf("subtitle element not dropped: %q", argv)
	}
}

func TestGenerate_FeatureMapping(t *testing.T) {
	tests := []struct {
		name   string
		fields string
		want   [][]string
		absent []string
	}{
		{
			name:   "nvenc hevc 10 bit",
			fields: `"VideoEncoder":"nvenc_h265_10bit","VideoQualitySlider":24`,
			want:   [][]string{{"-c:v", "hevc_nvenc", "-cq", "24"}, {"-pix_fmt", "p010le"}},
		},
		{
			name:   "hardware without ffmpeg encoder falls back",
			fields: `"VideoEncoder":"vt_av1"`,
			want:   [][]string{{"-c:v", "libsvtav1", "-crf", "22"}},
		},
		{
			name:   "vp9 constant quality",
			fields: `"VideoEncoder":"VP9","VideoQualitySlider":31`,
			want:   [][]string{{"-c:v", "libvpx-vp9", "-crf", "31", "-b:v", "0"}},
			absent: []string{"-preset", "-profile:v"},
		},
		{
			name:   "fractional quality",
			fields: `"VideoQualitySlider":20.5`,
			want:   [][]string{{"-crf", "20.5"}},
		},
		{
			name:   "average bitrate",
			fields: `"VideoQualityType":1,"VideoAvgBitrate":2500`,
			want:   [][]string{{"-c:v", "libx264", "-b:v", "2500k"}},
			absent: []string{"-crf"},
		},
		{
			name:   "peak framerate",
			fields: `"VideoFramerate":"30","VideoFramerateMode":"pfr"`,
			want:   [][]string{{"-fpsmax", "30"}},
		},
		{
			name:   "fixed keyframe interval after pixel format",
			fields: `"VideoEncoder":"x264"`,
			want:   [][]string{{"-pix_fmt", "yuv420p", "-g", "60", "-c:a"}},
		},
		{
			name:   "constant framerate",
			fields: `"VideoFramerate":"23.976","VideoFramerateMode":"cfr"`,
			want:   [][]string{{"-r", "23.976"}},
		},
		{
			name:   "auto profile and level",
			fields: `"VideoProfile":"auto","VideoLevel":"auto"`,
			absent: []string{"-profile:v", "-level"},
		},
		{
			name:   "full colour range",
			fields: `"VideoColorRange":"full"`,
			want:   [][]string{{"-color_range", "pc"}},
		},
		{
			name:   "width only",
			fields: `"PictureWidth":1280,"PictureHeight":0`,
			want:   [][]string{{"-vf", "scale='min(1280,iw)':-2,subtitles={SUBTITLE_FILE}"}},
		},
		{
			name:   "decomb bob with nlmeans",
			fields: `"PictureWidth":0,"PictureHeight":0,"PictureDeinterlaceFilter":"decomb","PictureDeinterlacePreset":"bob","PictureDenoiseFilter":"nlmeans","PictureDenoisePreset":"light","SubtitleBurnBehavior":"none"`,
			want:   [][]string{{"-vf", "yadif=mode=send_field:deint=interlaced,nlmeans=s=2"}},
		},
		{
			name:   "hqdn3d strong",
			fields: `"PictureWidth":0,"PictureHeight":0,"PictureDenoiseFilter":"hqdn3d","PictureDenoisePreset":"strong","SubtitleBurnBehavior":"none"`,
			want:   [][]string{{"-vf", "hqdn3d=7:7:5:5"}},
		},
		{
			name:   "no filters",
			fields: `"PictureWidth":0,"PictureHeight":0,"SubtitleBurnBehavior":"none","SubtitleTrackSelectionBehavior":"none"`,
			want:   [][]string{{"-sn"}},
			absent: []string{"-vf", "-c:s"},
		},
		{
			name:   "audio passthrough",
			fields: `"AudioList":[{"AudioEncoder":"copy:dts","AudioBitrate":640,"AudioMixdown":"5point1"}]`,
			want:   [][]string{{"-c:a", "copy"}},
			absent: []string{"-b:a", "-ac"},
		},
		{
			name:   "flac has no bitrate",
			fields: `"AudioList":[{"AudioEncoder":"flac24","AudioMixdown":"7point1"}]`,
			want:   [][]string{{"-c:a", "flac", "-ac", "8"}},
			absent: []string{"-b:a"},
		},
		{
			name:   "opus 5.1",
			fields: `"AudioList":[{"AudioEncoder":"opus","AudioBitrate":256,"AudioMixdown":"5point1"}]`,
			want:   [][]string{{"-c:a", "libopus", "-b:a", "256k", "-ac", "6"}},
		},
		{
			name:   "soft subtitles in mp4",
			fields: `"SubtitleBurnBehavior":"none"`,
			want:   [][]string{{"-map", "0:{SUBTITLE_TRACK}"}, {"-c:s", "mov_text"}},
		},
		{
			name:   "soft subtitles in mkv",
			fields: `"SubtitleBurnBehavior":"none","FileFormat":"av_mkv"`,
			want:   [][]string{{"-c:s", "copy"}},
		},
		{
			name:   "optimized mp4 without chapters",
			fields: `"Mp4HttpOptimize":true,"ChapterMarkers":false`,
			want:   [][]string{{"-map_chapters", "-1", "-map_metadata", "0", "-movflags", "+faststart", "-y", "{OUTPUT}"}},
		},
		{
			name:   "unknown encoder passes through",
			fields: `"VideoEncoder":"ffv1"`,
			want:   [][]string{{"-c:v", "ffv1", "-crf", "22"}},
			absent: []string{"-pix_fmt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustPreset(t, `{"PresetList":[{`+tt.fields+`}]}`)
			tmpl, _, err := Generate(p, EngineFFmpeg)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			args := tmpl.Args()
			for _, seq := range tt.want {
				if !containsSeq(args, seq...) {
					t.Errorf("missing %q in %q", seq, args)
				}
			}
			for _, a := range tt.absent {
				if containsSeq(args, a) {
					t.Errorf("unexpected %q in %q", a, args)
				}
			}
		})
	}
}

func TestGenerate_Notes(t *testing.T) {
	p := mustPreset(t, `{"PresetList":[{"VideoEncoder":"svt_av1","VideoQualityType":1,"VideoAvgBitrate":3000,"VideoTwoPass":true}]}`)
	_, notes, err := Generate(p, EngineFFmpeg)
	if err != nil {
		t.Fatal(err)
	}
	if len(notes) != 2 {
		t.Errorf("notes = %q, want two-pass and preset notes", notes)
	}
}

func TestGenerate_Idempotent(t *testing.T) {
	p := mustPreset(t, `{"PresetList":[{"VideoEncoder":"x265","PictureDenoiseFilter":"hqdn3d"}]}`)
	v := Values{Input: "a.mkv", Output: "b.mp4", AudioTrack: "2", SubtitleFile: "s.ass"}
	var prev []string
	for i := 0; i < 2; i++ {
		tmpl, _, err := Generate(p, EngineFFmpeg)
		if err != nil {
			t.Fatal(err)
		}
		argv, err := tmpl.Instantiate(v)
		if err != nil {
			t.Fatal(err)
		}
		if prev != nil && !reflect.DeepEqual(prev, argv) {
			t.Fatalf("second translation differs:\n%q\n%q", prev, argv)
		}
		prev = argv
	}
}

func TestGenerate_HandBrake(t *testing.T) {
	p := mustPreset(t, `{"PresetList":[{"PresetName":"Anime 720p"}]}`)
	if _, _, err := Generate(p, EngineHandBrake); err == nil {
		t.Fatal("expected error without a preset file")
	}
	p.Source = "/presets/anime.json"
	tmpl, _, err := Generate(p, EngineHandBrake)
	if err != nil {
		t.Fatal(err)
	}
	if tmpl.Engine() != EngineHandBrake {
		t.Errorf("Engine = %v", tmpl.Engine())
	}

	audio := tracks.Track{Index: 2, KindIndex: 1, Kind: tracks.Audio}
	d := tracks.Decision{Audio: tracks.Selection{Kind: tracks.Audio, Track: &audio}}
	v := NewValues(EngineHandBrake, "/in/a.mkv", "/out/a.mp4", d)
	v.Program = "/opt/hb/HandBrakeCLI"
	argv, err := tmpl.Instantiate(v)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"/opt/hb/HandBrakeCLI",
		"--preset-import-file", "/presets/anime.json",
		"--preset", "Anime 720p",
		"-i", "/in/a.mkv",
		"-o", "/out/a.mp4",
		"--audio", "2",
	}
	if !reflect.DeepEqual(argv, want) {
		t.Errorf("argv:\n got %q\nwant %q", argv, want)
	}

	sub := tracks.Track{Index: 5, KindIndex: 2, Kind: tracks.Subtitle}
	d.Subtitle = tracks.Selection{Kind: tracks.Subtitle, Track: &sub}
	argv, err = tmpl.Instantiate(NewValues(EngineHandBrake, "/in/a.mkv", "/out/a.mp4", d))
	if err != nil {
		t.Fatal(err)
	}
	if !containsSeq(argv, "--audio", "2", "--subtitle-burned", "--subtitle", "3") {
		t.Errorf("burn block missing: %q", argv)
	}
}

func TestGenerate_HandBrakeSubtitleModes(t *testing.T) {
	audio := tracks.Track{Index: 1, Kind: tracks.Audio}
	noSub := tracks.Decision{Audio: tracks.Selection{Kind: tracks.Audio, Track: &audio}}
	tests := []struct {
		mode   string
		absent []string
	}{
		{mode: "burn", absent: []string{"--subtitle-burned", "--subtitle"}},
		{mode: "soft", absent: []string{"--subtitle"}},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			p := mustPreset(t, `{"PresetList":[{"PresetName":"Fast 1080p30"}]}`)
			p.Source = "/p.json"
			p.Subtitles = preset.Subtitles{Mode: preset.SubtitleMode(tt.mode)}
			tmpl, _, err := Generate(p, EngineHandBrake)
			if err != nil {
				t.Fatal(err)
			}
			argv, err := tmpl.Instantiate(NewValues(EngineHandBrake, "in.mkv", "out.mp4", noSub))
			if err != nil {
				t.Fatal(err)
			}
			for _, a := range tt.absent {
				if containsSeq(argv, a) {
					t.Errorf("no subtitle selected but %s survived: %q", a, argv)
				}
			}
			if argv[len(argv)-2] != "--audio" || argv[len(argv)-1] != "1" {
				t.Errorf("audio block lost: %q", argv)
			}
		})
	}
}

func TestNewValues_FFmpegUsesStreamIndex(t *testing.T) {
	audio := tracks.Track{Index: 2, KindIndex: 1, Kind: tracks.Audio}
	sub := tracks.Track{Index: 4, KindIndex: 0, Kind: tracks.Subtitle}
	d := tracks.Decision{
		Audio:    tracks.Selection{Track: &audio},
		Subtitle: tracks.Selection{Track: &sub},
	}
	v := NewValues(EngineFFmpeg, "in", "out", d)
	if v.AudioTrack != "2" || v.SubtitleTrack != "4" {
		t.Errorf("values = %+v", v)
	}
	v = NewValues(EngineFFmpeg, "in", "out", tracks.Decision{})
	if v.AudioTrack != "" || v.SubtitleTrack != "" {
		t.Errorf("empty decision gave %+v", v)
	}
}

func TestInstantiate(t *testing.T) {
	full := Values{Input: "in.mkv", Output: "out.mkv", AudioTrack: "1", SubtitleTrack: "3", SubtitleFile: "/tmp/s.srt"}
	tests := []struct {
		name    string
		tmpl    string
		values  Values
		want    []string
		wantErr Placeholder
	}{
		{
			name:   "no placeholders round trip",
			tmpl:   "ffmpeg -version",
			values: Values{},
			want:   []string{"ffmpeg", "-version"},
		},
		{
			name:   "repeated placeholders",
			tmpl:   "ffmpeg -i {INPUT} -metadata source={INPUT} {OUTPUT}",
			values: full,
			want:   []string{"ffmpeg", "-i", "in.mkv", "-metadata", "source=in.mkv", "out.mkv"},
		},
		{
			name:   "substitution is not recursive",
			tmpl:   "ffmpeg -i {INPUT} {OUTPUT}",
			values: Values{Input: "{OUTPUT}", Output: "o {INPUT}"},
			want:   []string{"ffmpeg", "-i", "{OUTPUT}", "o {INPUT}"},
		},
		{
			name:   "unknown token kept",
			tmpl:   "ffmpeg -i {INPUT} -metadata title={TITLE} {OUTPUT}",
			values: full,
			want:   []string{"ffmpeg", "-i", "in.mkv", "-metadata", "title={TITLE}", "out.mkv"},
		},
		{
			name:   "missing audio drops map block",
			tmpl:   "ffmpeg -i {INPUT} -map 0:v:0 -map 0:{AUDIO_TRACK} -c copy {OUTPUT}",
			values: Values{Input: "in.mkv", Output: "out.mkv"},
			want:   []string{"ffmpeg", "-i", "in.mkv", "-map", "0:v:0", "-c", "copy", "out.mkv"},
		},
		{
			name:   "missing subtitle drops whole filter chain",
			tmpl:   "ffmpeg -i {INPUT} -vf subtitles={SUBTITLE_FILE} {OUTPUT}",
			values: Values{Input: "in.mkv", Output: "out.mkv"},
			want:   []string{"ffmpeg", "-i", "in.mkv", "out.mkv"},
		},
		{
			name:   "chain quotes protect commas",
			tmpl:   `ffmpeg -i {INPUT} -vf "scale='min(1280,iw)':-2,subtitles={SUBTITLE_FILE}" {OUTPUT}`,
			values: Values{Input: "in.mkv", Output: "out.mkv"},
			want:   []string{"ffmpeg", "-i", "in.mkv", "-vf", "scale='min(1280,iw)':-2", "out.mkv"},
		},
		{
			name:   "standalone subtitle file is not filter escaped",
			tmpl:   "ffmpeg -i {INPUT} -i {SUBTITLE_FILE} {OUTPUT}",
			values: Values{Input: "in.mkv", Output: "out.mkv", SubtitleFile: "C:/subs/a:b.ass"},
			want:   []string{"ffmpeg", "-i", "in.mkv", "-i", "C:/subs/a:b.ass", "out.mkv"},
		},
		{
			name:   "flag with attached value",
			tmpl:   "HandBrakeCLI -i {INPUT} -o {OUTPUT} --subtitle={SUBTITLE_TRACK} --all-audio",
			values: Values{Input: "in.mkv", Output: "out.mkv"},
			want:   []string{"HandBrakeCLI", "-i", "in.mkv", "-o", "out.mkv", "--all-audio"},
		},
		{
			name:   "switches before a dropped flag go with it",
			tmpl:   "HandBrakeCLI -i {INPUT} -o {OUTPUT} --audio {AUDIO_TRACK} --subtitle-burned --subtitle {SUBTITLE_TRACK}",
			values: Values{Input: "in.mkv", Output: "out.mp4", AudioTrack: "1"},
			want:   []string{"HandBrakeCLI", "-i", "in.mkv", "-o", "out.mp4", "--audio", "1"},
		},
		{
			name:   "switch after a dropped block is kept",
			tmpl:   "ffmpeg -i {INPUT} -map 0:{AUDIO_TRACK} -sn {OUTPUT}",
			values: Values{Input: "in.mkv", Output: "out.mkv"},
			want:   []string{"ffmpeg", "-i", "in.mkv", "-sn", "out.mkv"},
		},
		{
			name:   "quoted subtitle file gets option escaping only",
			tmpl:   `ffmpeg -i {INPUT} -vf "subtitles='{SUBTITLE_FILE}'" {OUTPUT}`,
			values: Values{Input: "in.mkv", Output: "out.mkv", SubtitleFile: `C:\tmp\a:b's.ass`},
			want:   []string{"ffmpeg", "-i", "in.mkv", "-vf", `subtitles='C\:/tmp/a\:b'\\\''s.ass'`, "out.mkv"},
		},
		{
			name:   "program replaced",
			tmpl:   "ffmpeg -i {INPUT} {OUTPUT}",
			values: Values{Input: "a", Output: "b", Program: "/usr/local/bin/ffmpeg"},
			want:   []string{"/usr/local/bin/ffmpeg", "-i", "a", "b"},
		},
		{
			name:    "missing output",
			tmpl:    "ffmpeg -i {INPUT} {OUTPUT}",
			values:  Values{Input: "a"},
			wantErr: Output,
		},
		{
			name:    "missing input",
			tmpl:    "ffmpeg -i {INPUT} {OUTPUT}",
			values:  Values{Output: "b"},
			wantErr: Input,
		},
		{
			name:    "placeholder in program word",
			tmpl:    "{INPUT} -o {OUTPUT}",
			values:  Values{Input: "a", Output: "b"},
			wantErr: Input,
		},
		{
			name:    "positional optional without value",
			tmpl:    "ffmpeg -i {INPUT} {SUBTITLE_FILE} {OUTPUT}",
			values:  Values{Input: "a", Output: "b"},
			wantErr: SubtitleFile,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := Parse(tt.tmpl)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			got, err := tmpl.Instantiate(tt.values)
			if tt.wantErr != "" {
				var te *Error
				if !errors.As(err, &te) || te.Placeholder != tt.wantErr {
					t.Fatalf("err = %v, want *Error for %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Instantiate: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got  %q\nwant %q", got, tt.want)
			}
			for _, a := range got {
				for _, p := range Placeholders {
					if strings.Contains(a, p.String()) && !strings.Contains(tt.values.Input+tt.values.Output, p.String()) {
						t.Errorf("unresolved %s in %q", p, got)
					}
				}
			}
		})
	}
}

func TestParse(t *testing.T) {
	tmpl, err := Parse(`ffmpeg -i "{INPUT}" -metadata 'title=My Show' -vf scale=1280:-2 a\ b {OUTPUT}`)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"ffmpeg", "-i", "{INPUT}", "-metadata", "title=My Show", "-vf", "scale=1280:-2", "a b", "{OUTPUT}"}
	if !reflect.DeepEqual(tmpl.Args(), want) {
		t.Errorf("Args = %q", tmpl.Args())
	}
	if got := tmpl.Uses(); !reflect.DeepEqual(got, []Placeholder{Input, Output}) {
		t.Errorf("Uses = %v", got)
	}

	for _, bad := range []string{"", "   ", `ffmpeg 'oops`, `ffmpeg "oops`, `ffmpeg \`} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) succeeded", bad)
		}
	}
}

func TestTemplateText_ReparsesToSameArgs(t *testing.T) {
	args := []string{"ffmpeg", "-i", "{INPUT}", "-metadata", "title=It's here", "-vf", "scale='min(1280,iw)':-2,subtitles={SUBTITLE_FILE}", "{OUTPUT}"}
	tmpl := FromArgs(args)
	again, err := Parse(tmpl.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", tmpl.String(), err)
	}
	if !reflect.DeepEqual(again.Args(), args) {
		t.Errorf("reparsed %q", again.Args())
	}
}

func TestUnknown(t *testing.T) {
	tmpl := MustParse("ffmpeg -i {INPUT} -metadata a={FOO} -metadata b={FOO} -x {bar} {OUTPUT}")
	if got := tmpl.Unknown(); !reflect.DeepEqual(got, []string{"{FOO}", "{bar}"}) {
		t.Errorf("Unknown = %q", got)
	}
}

func TestEngine(t *testing.T) {
	tests := map[string]Engine{
		"ffmpeg -version":                       EngineFFmpeg,
		"/usr/bin/HandBrakeCLI --version":       EngineHandBrake,
		`"C:\Program Files\HandBrakeCLI.exe" x`: EngineHandBrake,
	}
	for text, want := range tests {
		if got := MustParse(text).Engine(); got != want {
			t.Errorf("Engine(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestEscapeFilterValue(t *testing.T) {
	tests := map[string]string{
		"/tmp/plain.ass":      "/tmp/plain.ass",
		`C:\subs\it's.ass`:    `C\\:/subs/it\\\'s.ass`,
		"/tmp/[a],b;c.srt":    `/tmp/\[a\]\,b\;c.srt`,
		"/tmp/with space.srt": "/tmp/with space.srt",
	}
	for in, want := range tests {
		if got := EscapeFilterValue(in); got != want {
			t.Errorf("EscapeFilterValue(%q) = %q, want %q", in, got, want)
		}
	}

	quoted := map[string]string{
		"/tmp/plain.ass":   "/tmp/plain.ass",
		`C:\subs\a.ass`:    `C\:/subs/a.ass`,
		"/tmp/[a],b;c.srt": "/tmp/[a],b;c.srt",
		"/tmp/it's.srt":    `/tmp/it'\\\''s.srt`,
	}
	for in, want := range quoted {
		if got := EscapeQuotedFilterValue(in); got != want {
			t.Errorf("EscapeQuotedFilterValue(%q) = %q, want %q", in, got, want)
		}
	}
}
