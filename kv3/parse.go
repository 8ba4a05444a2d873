package kv3

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDepth bounds array and object nesting when Options.MaxDepth is zero.
const DefaultMaxDepth = 256

const byteOrderMark = "\ufeff"

// Options configures a Parser.
type Options struct {
	// MaxDepth limits nesting of arrays and objects. Zero selects
	// DefaultMaxDepth; a negative value disables the limit.
	MaxDepth int
	// Logger receives debug traces. Nil disables logging.
	Logger *slog.Logger
}

// Parser parses KV3 text. It holds no per-call state and is safe for
// concurrent use.
type Parser struct {
	maxDepth int
	log      *slog.Logger
}

// NewParser creates a Parser with the given options.
func NewParser(opts Options) *Parser {
	depth := opts.MaxDepth
	if depth == 0 {
		depth = DefaultMaxDepth
	}
	return &Parser{maxDepth: depth, log: opts.Logger}
}

var defaultParser = NewParser(Options{})

// Parse parses a KV3 document with default options. See Parser.Parse.
func Parse(text string) (string, *Object, error) {
	return defaultParser.Parse(text)
}

// ParseValue parses a single KV3 value with default options. See
// Parser.ParseValue.
func ParseValue(text string) (string, Value, error) {
	return defaultParser.ParseValue(text)
}

// Parse parses a document: a braced list of key = value pairs surrounded by
// optional whitespace and comments. It returns the root object and whatever
// text follows it; deciding whether trailing text is acceptable is left to the
// caller.
func (p *Parser) Parse(text string) (string, *Object, error) {
	s := p.scanner(text)
	if err := s.skip(); err != nil {
		return "", nil, err
	}
	if !s.peek('{') {
		return "", nil, s.expected("'{'")
	}
	root, err := s.object()
	if err != nil {
		return "", nil, err
	}
	if err := s.skip(); err != nil {
		return "", nil, err
	}
	rest := s.src[s.pos:]
	if p.log != nil {
		p.log.Debug("parsed kv3 root", "keys", root.Len(), "remaining", len(rest))
	}
	return rest, root, nil
}

// ParseValue parses one value of any kind, surrounded by optional whitespace
// and comments, and returns it with the unconsumed text.
func (p *Parser) ParseValue(text string) (string, Value, error) {
	s := p.scanner(text)
	if err := s.skip(); err != nil {
		return "", nil, err
	}
	v, err := s.value()
	if err != nil {
		return "", nil, err
	}
	if err := s.skip(); err != nil {
		return "", nil, err
	}
	return s.src[s.pos:], v, nil
}

func (p *Parser) scanner(text string) *scanner {
	s := &scanner{src: text, maxDepth: p.maxDepth, log: p.log}
	if strings.HasPrefix(text, byteOrderMark) {
		s.pos = len(byteOrderMark)
	}
	return s
}

// scanner is the cursor state of a single parse call.
type scanner struct {
	src      string
	pos      int
	depth    int
	maxDepth int
	log      *slog.Logger
}

func (s *scanner) peek(c byte) bool {
	return s.pos < len(s.src) && s.src[s.pos] == c
}

// expected builds a SyntaxError at the cursor.
func (s *scanner) expected(what string) error {
	return &SyntaxError{
		Position: positionAt(s.src, s.pos),
		Expected: what,
		Found:    s.excerpt(),
	}
}

// excerpt returns the token-ish text at the cursor for error messages.
func (s *scanner) excerpt() string {
	rest := s.src[s.pos:]
	if rest == "" {
		return ""
	}
	end := strings.IndexAny(rest, " \t\r\n")
	if end < 0 {
		end = len(rest)
	}
	if end == 0 {
		_, end = utf8.DecodeRuneInString(rest)
	}
	if end > 16 {
		end = 16
		for end > 0 && !utf8.RuneStart(rest[end]) {
			end--
		}
	}
	return rest[:end]
}

func (s *scanner) enter() error {
	s.depth++
	if s.maxDepth > 0 && s.depth > s.maxDepth {
		return &DepthError{Position: positionAt(s.src, s.pos), Max: s.maxDepth}
	}
	return nil
}

func (s *scanner) leave() { s.depth-- }

// value parses one value. Alternatives are tried in a fixed order: array,
// hex array, object, false, true, null, number, string. Once a container
// opener has been consumed any failure inside it is final.
func (s *scanner) value() (Value, error) {
	if s.pos >= len(s.src) {
		return nil, s.expected("value")
	}
	rest := s.src[s.pos:]
	switch {
	case rest[0] == '[':
		return s.array()
	case strings.HasPrefix(rest, "#["):
		return s.hexArray()
	case rest[0] == '{':
		obj, err := s.object()
		if err != nil {
			return nil, err
		}
		return obj, nil
	}
	if v, ok := s.keyword(); ok {
		return v, nil
	}
	if v, ok, err := s.number(); ok || err != nil {
		return v, err
	}
	if rest[0] == '"' {
		return s.str()
	}
	return nil, s.expected("value")
}

func (s *scanner) array() (Value, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	s.pos++ // '['
	items := Array{}
	if err := s.skip(); err != nil {
		return nil, err
	}
	if s.peek(']') {
		s.pos++
		return items, nil
	}
	for {
		v, err := s.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)
		if err := s.skip(); err != nil {
			return nil, err
		}
		switch {
		case s.peek(','):
			s.pos++
			if err := s.skip(); err != nil {
				return nil, err
			}
			// a single trailing comma is allowed
			if s.peek(']') {
				s.pos++
				return items, nil
			}
		case s.peek(']'):
			s.pos++
			return items, nil
		default:
			return nil, s.expected("',' or ']'")
		}
	}
}

// hexArray decodes the whitespace-separated tokens between "#[" and the next
// "]". Tokens that are not a hex byte are dropped.
func (s *scanner) hexArray() (Value, error) {
	s.pos += len("#[")
	end := strings.IndexByte(s.src[s.pos:], ']')
	if end < 0 {
		s.pos = len(s.src)
		return nil, s.expected("']' closing hex array")
	}
	body := s.src[s.pos : s.pos+end]
	out := HexArray{}
	for _, tok := range strings.Fields(body) {
		b, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			continue
		}
		out = append(out, byte(b))
	}
	s.pos += end + 1
	return out, nil
}

func (s *scanner) object() (*Object, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	s.pos++ // '{'
	obj := NewObject()
	if err := s.pairs(obj); err != nil {
		return nil, err
	}
	if !s.peek('}') {
		return nil, s.expected("'}'")
	}
	s.pos++
	return obj, nil
}

// pairs reads key = value pairs until a closing brace or end of input.
func (s *scanner) pairs(obj *Object) error {
	for {
		if err := s.skip(); err != nil {
			return err
		}
		if s.pos >= len(s.src) || s.src[s.pos] == '}' {
			return nil
		}
		at := s.pos
		key := s.key()
		if err := s.skip(); err != nil {
			return err
		}
		if !s.peek('=') {
			if key == "" {
				return s.expected("key or '}'")
			}
			return s.expected("'='")
		}
		s.pos++
		if err := s.skip(); err != nil {
			return err
		}
		v, err := s.value()
		if err != nil {
			return err
		}
		obj.Set(key, v)
		if s.log != nil {
			s.log.Debug("parsed kv3 pair", "key", key, "kind", v.Kind(), "offset", at)
		}
	}
}
