package kv3

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/valyala/fastjson/fastfloat"
)

// key consumes the longest run of letters, digits and underscores. An empty
// key is legal.
func (s *scanner) key() string {
	start := s.pos
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			break
		}
		s.pos += size
	}
	return s.src[start:s.pos]
}

// str consumes a triple-quoted or quoted literal. The triple form is tried
// first since its opener starts with the single form's opener. Content is
// taken verbatim.
func (s *scanner) str() (String, error) {
	rest := s.src[s.pos:]
	open, name := `"`, "string"
	if strings.HasPrefix(rest, `"""`) {
		open, name = `"""`, "multi-line string"
	}
	end := strings.Index(rest[len(open):], open)
	if end < 0 {
		return "", &UnterminatedLiteralError{
			Position: positionAt(s.src, s.pos),
			Literal:  name,
			Closer:   open,
		}
	}
	v := rest[len(open) : len(open)+end]
	s.pos += len(open) + end + len(open)
	return String(v), nil
}

func (s *scanner) digits(i int) int {
	n := 0
	for i+n < len(s.src) && s.src[i+n] >= '0' && s.src[i+n] <= '9' {
		n++
	}
	return n
}

// number consumes a float-shaped lexeme: optional sign, digits, optional
// fraction and optional exponent. ok is false when no lexeme starts here.
// Lexemes containing '.', 'e' or 'E' become Double, all others Int.
func (s *scanner) number() (v Value, ok bool, err error) {
	start, i := s.pos, s.pos
	if i < len(s.src) && (s.src[i] == '+' || s.src[i] == '-') {
		i++
	}
	intDigits := s.digits(i)
	i += intDigits
	fracDigits := 0
	if i < len(s.src) && s.src[i] == '.' {
		fracDigits = s.digits(i + 1)
		if intDigits > 0 || fracDigits > 0 {
			i += 1 + fracDigits
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return nil, false, nil
	}
	if i < len(s.src) && (s.src[i] == 'e' || s.src[i] == 'E') {
		j := i + 1
		if j < len(s.src) && (s.src[j] == '+' || s.src[j] == '-') {
			j++
		}
		if n := s.digits(j); n > 0 {
			i = j + n
		}
	}

	lexeme := s.src[start:i]
	bad := &NumberFormatError{Position: positionAt(s.src, start), Literal: lexeme}
	s.pos = i

	if strings.ContainsAny(lexeme, ".eE") {
		f, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			return nil, true, bad
		}
		return Double(f), true, nil
	}
	n, err := fastfloat.ParseInt64(strings.TrimPrefix(lexeme, "+"))
	if err != nil {
		return nil, true, bad
	}
	return Int(n), true, nil
}

// keyword matches one of the literal keywords at the cursor.
func (s *scanner) keyword() (Value, bool) {
	rest := s.src[s.pos:]
	switch {
	case strings.HasPrefix(rest, "false"):
		s.pos += len("false")
		return Bool(false), true
	case strings.HasPrefix(rest, "true"):
		s.pos += len("true")
		return Bool(true), true
	case strings.HasPrefix(rest, "null"):
		s.pos += len("null")
		return Null{}, true
	}
	return nil, false
}
