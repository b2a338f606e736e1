package fileinput

import "regexp"

// CompilePattern compiles a content splitter pattern in multiline mode,
// so ^ and $ match at line boundaries.
//
// Patterns use RE2 syntax, the same engine the splitter runs. Backreferences
// such as (\w)\1 and lookaround such as (?<=x)y are not supported and are
// reported as invalid, even though Graylog and other Java based collectors accept them.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?m)" + pattern)
}
