// Package translate turns a normalized preset into an encoder command
// template and instantiates templates for individual files.
//
// A template is a command line holding any of five placeholders:
// {INPUT}, {OUTPUT}, {AUDIO_TRACK}, {SUBTITLE_TRACK} and {SUBTITLE_FILE}.
// Templates are split into arguments before substitution, so substituted
// values are never re-split or re-scanned. Other {WORD} tokens are kept
// verbatim and reported by Template.Unknown.
package translate

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"reencoder/internal/util"
)

// Placeholder is one of the substitution tokens understood in templates.
type Placeholder string

const (
	Input         Placeholder = "INPUT"
	Output        Placeholder = "OUTPUT"
	AudioTrack    Placeholder = "AUDIO_TRACK"
	SubtitleTrack Placeholder = "SUBTITLE_TRACK"
	SubtitleFile  Placeholder = "SUBTITLE_FILE"
)

// Placeholders lists every recognised token in grammar order.
var Placeholders = []Placeholder{Input, Output, AudioTrack, SubtitleTrack, SubtitleFile}

func (p Placeholder) String() string { return "{" + string(p) + "}" }

// Required reports whether instantiation fails when p has no value.
// Optional placeholders drop their argument block instead.
func (p Placeholder) Required() bool { return p == Input || p == Output }

func known(name string) bool {
	for _, p := range Placeholders {
		if string(p) == name {
			return true
		}
	}
	return false
}

var tokenRE = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Engine identifies the program a template invokes.
type Engine string

const (
	EngineFFmpeg    Engine = "ffmpeg"
	EngineHandBrake Engine = "handbrake"
)

// ParseEngine accepts "ffmpeg", "handbrake" and "HandBrakeCLI".
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ffmpeg", "":
		return EngineFFmpeg, nil
	case "handbrake", "handbrakecli":
		return EngineHandBrake, nil
	}
	return "", fmt.Errorf("unknown backend %q (want ffmpeg or handbrake)", s)
}

// Template is a tokenized command line with placeholders left in place.
type Template struct {
	text string
	args []string
}

// Parse splits text into arguments using POSIX shell quoting rules:
// whitespace separates words, single quotes are literal, double quotes
// allow backslash escapes and a backslash outside quotes escapes the next
// character. No expansion is performed.
func Parse(text string) (Template, error) {
	args, err := splitWords(text)
	if err != nil {
		return Template{}, &Error{Template: text, Msg: err.Error()}
	}
	if len(args) == 0 {
		return Template{}, &Error{Template: text, Msg: "empty command"}
	}
	return Template{text: text, args: args}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Template {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// FromArgs builds a template from an argument vector.
func FromArgs(args []string) Template {
	return Template{text: util.ShellJoin(args), args: append([]string(nil), args...)}
}

// String returns the template text as written or generated.
func (t Template) String() string { return t.text }

// Args returns a copy of the tokenized arguments, program first.
func (t Template) Args() []string { return append([]string(nil), t.args...) }

// IsZero reports whether t holds no command.
func (t Template) IsZero() bool { return len(t.args) == 0 }

// Engine guesses the target engine from the program name.
func (t Template) Engine() Engine {
	if len(t.args) == 0 {
		return EngineFFmpeg
	}
	base := strings.ToLower(filepath.Base(t.args[0]))
	if strings.Contains(base, "handbrake") {
		return EngineHandBrake
	}
	return EngineFFmpeg
}

// Uses returns the recognised placeholders appearing in t, in grammar order.
func (t Template) Uses() []Placeholder {
	seen := map[string]bool{}
	for _, a := range t.args {
		for _, m := range tokenRE.FindAllStringSubmatch(a, -1) {
			seen[m[1]] = true
		}
	}
	var out []Placeholder
	for _, p := range Placeholders {
		if seen[string(p)] {
			out = append(out, p)
		}
	}
	return out
}

// Unknown returns the {WORD} tokens that are not placeholders, in order of
// first appearance. They are passed through unchanged.
func (t Template) Unknown() []string {
	var out []string
	seen := map[string]bool{}
	for _, a := range t.args {
		for _, m := range tokenRE.FindAllStringSubmatch(a, -1) {
			if known(m[1]) || seen[m[0]] {
				continue
			}
			seen[m[0]] = true
			out = append(out, m[0])
		}
	}
	return out
}

// Instantiate resolves every placeholder with v and returns the argument
// vector, program first.
//
// An argument referring to an optional placeholder without a value is
// removed together with the flag before it. Switches written directly
// before that flag belong to the same block and are removed with it, so
// "--subtitle-burned --subtitle {SUBTITLE_TRACK}" disappears as a whole.
// Inside a comma separated list such as a filter chain only the affected
// element is removed; the flag goes too when the list becomes empty. A
// missing {INPUT} or {OUTPUT}, a valueless optional in a positional
// argument, or a placeholder in the program word is an *Error.
func (t Template) Instantiate(v Values) ([]string, error) {
	if len(t.args) == 0 {
		return nil, &Error{Template: t.text, Msg: "empty command"}
	}
	for _, m := range tokenRE.FindAllStringSubmatch(t.args[0], -1) {
		if known(m[1]) {
			return nil, &Error{Template: t.text, Placeholder: Placeholder(m[1]), Msg: "placeholder in program name"}
		}
	}

	out := make([]string, 0, len(t.args))
	// flags counts the trailing arguments of out that are flags.
	flags := 0
	for i, arg := range t.args {
		refs := tokenRE.FindAllStringSubmatch(arg, -1)
		if len(refs) == 0 || i == 0 {
			out = append(out, arg)
			if i > 0 && isFlag(arg) {
				flags++
			} else {
				flags = 0
			}
			continue
		}

		var missing []Placeholder
		for _, m := range refs {
			p := Placeholder(m[1])
			if !known(m[1]) {
				continue
			}
			if _, ok := v.lookup(p); ok {
				continue
			}
			if p.Required() {
				return nil, &Error{Template: t.text, Placeholder: p, Msg: "no value"}
			}
			missing = append(missing, p)
		}

		if len(missing) > 0 {
			if parts := splitList(arg); len(parts) > 1 {
				var kept []string
				for _, part := range parts {
					if !mentionsAny(part, missing) {
						kept = append(kept, part)
					}
				}
				if len(kept) > 0 {
					out = append(out, substitute(strings.Join(kept, ","), v))
					flags = 0
					continue
				}
			}
			if !isFlag(arg) && flags == 0 {
				return nil, &Error{Template: t.text, Placeholder: missing[0], Msg: fmt.Sprintf("no value for positional argument %q", arg)}
			}
			out = out[:len(out)-flags]
			flags = 0
			continue
		}

		out = append(out, substitute(arg, v))
		flags = 0
	}
	if v.Program != "" {
		out[0] = v.Program
	}
	return out, nil
}

// Display renders an instantiated argument vector for logs and dry runs.
func Display(argv []string) string { return util.ShellJoin(argv) }

func substitute(arg string, v Values) string {
	var b strings.Builder
	last := 0
	for _, loc := range tokenRE.FindAllStringSubmatchIndex(arg, -1) {
		b.WriteString(arg[last:loc[0]])
		last = loc[1]
		tok, name := arg[loc[0]:loc[1]], arg[loc[2]:loc[3]]
		if !known(name) {
			b.WriteString(tok)
			continue
		}
		val, _ := v.lookup(Placeholder(name))
		switch {
		case Placeholder(name) != SubtitleFile || arg == tok:
			b.WriteString(val)
		case quotedAt(arg, loc[0]):
			b.WriteString(EscapeQuotedFilterValue(val))
		default:
			b.WriteString(EscapeFilterValue(val))
		}
	}
	b.WriteString(arg[last:])
	return b.String()
}

// quotedAt reports whether byte pos of s lies inside single quotes. A
// backslash escapes the next byte only outside quotes, as in ffmpeg.
func quotedAt(s string, pos int) bool {
	quoted := false
	for i := 0; i < pos && i < len(s); i++ {
		switch s[i] {
		case '\\':
			if !quoted {
				i++
			}
		case '\'':
			quoted = !quoted
		}
	}
	return quoted
}

func mentionsAny(s string, ps []Placeholder) bool {
	for _, p := range ps {
		if strings.Contains(s, p.String()) {
			return true
		}
	}
	return false
}

// isFlag reports whether a looks like an option rather than a value.
// Negative numbers are values.
func isFlag(a string) bool {
	if len(a) < 2 || a[0] != '-' {
		return false
	}
	c := a[1]
	return !(c >= '0' && c <= '9') && c != '.'
}

// splitList splits on commas outside single quotes that are not escaped
// with a backslash.
func splitList(s string) []string {
	var (
		parts  []string
		start  int
		quoted bool
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'':
			quoted = !quoted
		case ',':
			if !quoted {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func splitWords(s string) ([]string, error) {
	var (
		words  []string
		cur    strings.Builder
		inWord bool
		i      int
		n      = len(s)
	)
	for i < n {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
			i++
		case c == '\'':
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated single quote at offset %d", i)
			}
			cur.WriteString(s[i+1 : i+1+end])
			inWord = true
			i += end + 2
		case c == '"':
			j := i + 1
			closed := false
			for j < n {
				d := s[j]
				if d == '"' {
					closed = true
					break
				}
				if d == '\\' && j+1 < n && strings.IndexByte("\"\\$`", s[j+1]) >= 0 {
					cur.WriteByte(s[j+1])
					j += 2
					continue
				}
				cur.WriteByte(d)
				j++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated double quote at offset %d", i)
			}
			inWord = true
			i = j + 1
		case c == '\\':
			if i+1 >= n {
				return nil, fmt.Errorf("trailing backslash")
			}
			if s[i+1] != '\n' {
				cur.WriteByte(s[i+1])
				inWord = true
			}
			i += 2
		default:
			cur.WriteByte(c)
			inWord = true
			i++
		}
	}
	if inWord {
		words = append(words, cur.String())
	}
	return words, nil
}
