package tracks

import (
	"errors"
	"testing"
	"time"
)

const sampleMkvinfo = `+ EBML head
|+ EBML version: 1
|+ Document type: matroska
+ Segment: size 1234567890
|+ Seek head (subentries will be skipped)
|+ EBML void: size 4012
|+ Segment information
| + Timestamp scale: 1000000
| + Multiplexing application: libebml v1.4.2 + libmatroska v1.6.4
| + Duration: 00:23:40.040000000
| + Title: Episode 01
|+ Tracks
| + Track
|  + Track number: 1 (track ID for mkvmerge & mkvextract: 0)
|  + Track UID: 1
|  + Track type: video
|  + Codec ID: V_MPEGH/ISO/HEVC
|  + Default duration: 41.708333ms (23.976 frames/fields per second for a video track)
|  + Video track
|   + Pixel width: 1920
|   + Pixel height: 1080
| + Track
|  + Track number: 2 (track ID for mkvmerge & mkvextract: 1)
|  + Track type: audio
|  + Codec ID: A_FLAC
|  + Language: jpn
|  + Name: Japanese
|  + "Default track" flag: 1
| + Track
|  + Track number: 3 (track ID for mkvmerge & mkvextract: 2)
|  + Track type: audio
|  + Name: English Stereo
|  + Codec ID: A_AAC
|  + Language: eng
|  + Language (IETF BCP 47): en-US
| + Track
|  + Track number: 4 (track ID for mkvmerge & mkvextract: 3)
|  + Track type: subtitles
|  + Codec ID: S_TEXT/ASS
|  + Language: eng
|  + Name: Signs & Songs
|  + "Forced display" flag: 1
| + Track
|  + Track number: 5 (track ID for mkvmerge & mkvextract: 4)
|  + Track type: subtitles
|  + Codec ID: S_TEXT/ASS
|  + Language: eng
|+ Cluster
`

func TestParseMkvinfo(t *testing.T) {
	a, err := ParseMkvinfo(sampleMkvinfo)
	if err != nil {
		t.Fatalf("ParseMkvinfo: %v", err)
	}
	if a.Duration != 23*time.Minute+40*time.Second+40*time.Millisecond {
		t.Errorf("Duration = %v", a.Duration)
	}
	want := []Track{
		{Index: 0, KindIndex: 0, Kind: Video, Codec: "V_MPEGH/ISO/HEVC"},
		{Index: 1, KindIndex: 0, Kind: Audio, Language: "jpn", Name: "Japanese", Codec: "A_FLAC", Default: true},
		{Index: 2, KindIndex: 1, Kind: Audio, Language: "en-US", Name: "English Stereo", Codec: "A_AAC"},
		{Index: 3, KindIndex: 0, Kind: Subtitle, Language: "eng", Name: "Signs & Songs", Codec: "S_TEXT/ASS", Forced: true},
		{Index: 4, KindIndex: 1, Kind: Subtitle, Language: "eng", Codec: "S_TEXT/ASS"},
	}
	if len(a.Tracks) != len(want) {
		t.Fatalf("got %d tracks, want %d: %+v", len(a.Tracks), len(want), a.Tracks)
	}
	for i := range want {
		if a.Tracks[i] != want[i] {
			t.Errorf("track %d = %+v, want %+v", i, a.Tracks[i], want[i])
		}
	}
}

func TestParseMkvinfo_Tolerance(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantKinds []Kind
		wantIdx   []int
	}{
		{
			name: "no track id falls back to track number",
			in: "|+ Tracks\n| + Track\n|  + Track number: 3\n|  + Track type: audio\n",
			wantKinds: []Kind{Audio},
			wantIdx:   []int{2},
		},
		{
			name: "attributes before type and no name or language",
			in: "|+ Tracks\n| + Track\n|  + Codec ID: A_AC3\n|  + Track type: audio\n|  + Track number: 1 (track ID for mkvmerge & mkvextract: 0)\n",
			wantKinds: []Kind{Audio},
			wantIdx:   []int{0},
		},
		{
			name: "unknown track types dropped",
			in: "|+ Tracks\n| + Track\n|  + Track number: 1 (track ID for mkvmerge & mkvextract: 0)\n|  + Track type: buttons\n| + Track\n|  + Track number: 2 (track ID for mkvmerge & mkvextract: 1)\n|  + Track type: video\n",
			wantKinds: []Kind{Video},
			wantIdx:   []int{1},
		},
		{
			name: "verbose element offsets",
			in: "|+ Tracks at 4096\n| + Track at 4102\n|  + Track number: 1 (track ID for mkvmerge & mkvextract: 0)\n|  + Track type: subtitles\n",
			wantKinds: []Kind{Subtitle},
			wantIdx:   []int{0},
		},
		{
			name: "noise lines ignored",
			in: "(MKVInfo) warning: something\n|+ Tracks\n| + Track\n|  + Track number: 1 (track ID for mkvmerge & mkvextract: 0)\n|  + Track type: audio\n\nfinished\n",
			wantKinds: []Kind{Audio},
			wantIdx:   []int{0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseMkvinfo(tt.in)
			if err != nil {
				t.Fatalf("ParseMkvinfo: %v", err)
			}
			if len(a.Tracks) != len(tt.wantKinds) {
				t.Fatalf("tracks = %+v", a.Tracks)
			}
			for i, tr := range a.Tracks {
				if tr.Kind != tt.wantKinds[i] || tr.Index != tt.wantIdx[i] {
					t.Errorf("track %d = %+v", i, tr)
				}
			}
		})
	}
}

func TestParseMkvinfo_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "not an outline", in: "mkvinfo: error opening file\n"},
		{name: "no tracks element", in: "+ EBML head\n|+ Segment information\n| + Duration: 00:01:00.000000000\n"},
		{name: "duplicate index", in: "|+ Tracks\n| + Track\n|  + Track number: 1 (track ID for mkvmerge & mkvextract: 0)\n|  + Track type: audio\n| + Track\n|  + Track number: 2 (track ID for mkvmerge & mkvextract: 0)\n|  + Track type: audio\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMkvinfo(tt.in)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("err = %v, want *ParseError", err)
			}
		})
	}
}

func TestParseMkvDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:01:30.500000000", 90*time.Second + 500*time.Millisecond},
		{"1420.040s (00:23:40.040)", 23*time.Minute + 40*time.Second + 40*time.Millisecond},
		{"12.5s", 12500 * time.Millisecond},
		{"garbage", 0},
	}
	for _, tt := range tests {
		got := parseMkvDuration(tt.in)
		if diff := got - tt.want; diff > time.Millisecond || diff < -time.Millisecond {
			t.Errorf("parseMkvDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
