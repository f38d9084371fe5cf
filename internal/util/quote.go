package util

import "strings"

// ShellJoin returns a printable POSIX shell command line for argv.
// Pasting the result into sh reproduces the same argument vector.
func ShellJoin(argv []string) string {
	b := &strings.Builder{}
	for i, a := range argv {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(Quote(a))
	}
	return b.String()
}

// Quote single-quotes s when it contains characters the shell would interpret.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.ContainsAny(s, " \t\n\"'\\$`()[]*&;|<>?!~#") || braceExpands(s) {
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
	return s
}

// braceExpands reports whether s holds a {a,b} or {1..3} expression. A lone
// {WORD} is literal to the shell.
func braceExpands(s string) bool {
	i := strings.IndexByte(s, '{')
	if i < 0 {
		return false
	}
	rest := s[i:]
	return strings.ContainsRune(rest, '}') && (strings.ContainsRune(rest, ',') || strings.Contains(rest, ".."))
}
