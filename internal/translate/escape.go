package translate

import "strings"

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)

	// Inside '...' the filtergraph level is literal, so only the option
	// level applies. A quote closes the string, adds an escaped quote for
	// both levels and reopens it.
	quotedEscaper = strings.NewReplacer(`:`, `\:`, `'`, `'\\\''`)
)

// EscapeFilterValue escapes s for use as an option value inside an ffmpeg
// filtergraph argument such as "subtitles=PATH". Both escaping levels are
// applied: the filter option level, then the filtergraph level. Windows
// separators become forward slashes, which ffmpeg accepts.
func EscapeFilterValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `/`)
	return graphEscaper.Replace(optionEscaper.Replace(s))
}

// EscapeQuotedFilterValue escapes s for use between single quotes in a
// filtergraph argument, as in "subtitles='PATH'".
func EscapeQuotedFilterValue(s string) string {
	return quotedEscaper.Replace(strings.ReplaceAll(s, `\`, `/`))
}
