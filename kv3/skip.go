package kv3

import "strings"

// comment openers paired with their closers. A line comment is closed by the
// end of the line or the end of input.
var blockComments = []struct {
	open, close, name string
}{
	{"/*", "*/", "comment"},
	{"<!--", "-->", "xml comment"},
}

// Skip advances past any run of whitespace and comments and returns the
// remaining text. It fails only when a block comment is never closed.
func Skip(text string) (string, error) {
	s := &scanner{src: text}
	if err := s.skip(); err != nil {
		return text, err
	}
	return s.src[s.pos:], nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func (s *scanner) skip() error {
outer:
	for s.pos < len(s.src) {
		if isSpace(s.src[s.pos]) {
			s.pos++
			continue
		}
		rest := s.src[s.pos:]
		if strings.HasPrefix(rest, "//") {
			if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
				s.pos += nl
			} else {
				s.pos = len(s.src)
			}
			continue
		}
		for _, c := range blockComments {
			if !strings.HasPrefix(rest, c.open) {
				continue
			}
			end := strings.Index(rest[len(c.open):], c.close)
			if end < 0 {
				return &UnterminatedLiteralError{
					Position: positionAt(s.src, s.pos),
					Literal:  c.name,
					Closer:   c.close,
				}
			}
			s.pos += len(c.open) + end + len(c.close)
			continue outer
		}
		return nil
	}
	return nil
}
