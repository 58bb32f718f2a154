package importer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/matsen/bibmerge/internal/entry"
	"github.com/matsen/bibmerge/internal/metadata"
)

// monthMacros are predefined by BibTeX and kept verbatim when not redefined.
var monthMacros = map[string]bool{
	"jan": true, "feb": true, "mar": true, "apr": true, "may": true, "jun": true,
	"jul": true, "aug": true, "sep": true, "oct": true, "nov": true, "dec": true,
}

// ParseBibTeX parses a BibTeX database. @String macros become metadata string
// constants and are expanded in field values; @Comment blocks starting with
// "bibmerge-meta:" carry the remaining metadata. Malformed entries are
// skipped with a warning.
func ParseBibTeX(data []byte, path string) (*ParserResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("parsing BibTeX: input is not valid UTF-8")
	}

	p := &bibParser{src: string(data), result: NewParserResult(path)}
	p.parse()
	return p.result, nil
}

type bibParser struct {
	src    string
	pos    int
	result *ParserResult
}

func (p *bibParser) parse() {
	for {
		at := strings.IndexByte(p.src[p.pos:], '@')
		if at < 0 {
			return
		}
		start := p.pos + at
		p.pos = start + 1

		if err := p.parseItem(); err != nil {
			p.result.warnf("line %d: %v", p.lineAt(start), err)
			p.pos = start + 1
		}
	}
}

// parseItem parses the item after an '@'. Text that does not look like an
// item (no opening delimiter) is treated as a comment.
func (p *bibParser) parseItem() error {
	typ := p.readIdent()
	if typ == "" {
		return nil
	}
	p.skipSpace()
	if p.eof() || (p.peek() != '{' && p.peek() != '(') {
		return nil
	}
	closer := byte('}')
	if p.next() == '(' {
		closer = ')'
	}

	switch strings.ToLower(typ) {
	case "comment":
		body, err := p.readBalanced(closer)
		if err != nil {
			return err
		}
		p.handleComment(body)
		return nil
	case "preamble":
		_, err := p.readBalanced(closer)
		return err
	case "string":
		return p.parseString(closer)
	default:
		return p.parseEntry(typ, closer)
	}
}

func (p *bibParser) parseString(closer byte) error {
	p.skipSpace()
	name := p.readIdent()
	if name == "" {
		return fmt.Errorf("@String without a name")
	}
	if err := p.expect('='); err != nil {
		return err
	}
	value, err := p.readValue()
	if err != nil {
		return fmt.Errorf("@String %s: %w", name, err)
	}
	if err := p.expect(closer); err != nil {
		return fmt.Errorf("@String %s: %w", name, err)
	}

	if !p.result.MetaData.AddString(name, value) {
		p.result.warnf("string %q defined twice; keeping the first definition", name)
	}
	return nil
}

func (p *bibParser) parseEntry(typ string, closer byte) error {
	p.skipSpace()
	keyStart := p.pos
	for !p.eof() && p.peek() != ',' && p.peek() != closer && !isSpace(p.peek()) {
		p.pos++
	}
	e := entry.New(typ, p.src[keyStart:p.pos])

	p.skipSpace()
	if p.eof() {
		return fmt.Errorf("entry %q: unexpected end of input", e.Key)
	}
	if p.peek() == closer {
		p.pos++
		p.result.Database.InsertEntry(e)
		return nil
	}
	if err := p.expect(','); err != nil {
		return fmt.Errorf("entry %q: %w", e.Key, err)
	}

	for {
		p.skipSpace()
		if p.eof() {
			return fmt.Errorf("entry %q: unexpected end of input", e.Key)
		}
		if p.peek() == closer {
			p.pos++
			break
		}

		name := p.readIdent()
		if name == "" {
			return fmt.Errorf("entry %q: expected field name, found %q", e.Key, p.peek())
		}
		if err := p.expect('='); err != nil {
			return fmt.Errorf("entry %q, field %s: %w", e.Key, name, err)
		}
		value, err := p.readValue()
		if err != nil {
			return fmt.Errorf("entry %q, field %s: %w", e.Key, name, err)
		}
		if e.HasField(name) {
			p.result.warnf("entry %q: duplicate field %s ignored", e.Key, name)
		} else {
			e.SetField(name, value)
		}

		p.skipSpace()
		if p.eof() {
			return fmt.Errorf("entry %q: unexpected end of input", e.Key)
		}
		switch p.peek() {
		case ',':
			p.pos++
		case closer:
			p.pos++
			p.result.Database.InsertEntry(e)
			return nil
		default:
			return fmt.Errorf("entry %q: expected ',' or %q after field %s", e.Key, closer, name)
		}
	}

	p.result.Database.InsertEntry(e)
	return nil
}

func (p *bibParser) handleComment(body string) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(body), metadata.CommentPrefix)
	if !ok {
		return
	}
	key, value, ok := strings.Cut(rest, ":")
	if !ok {
		p.result.warnf("metadata comment without key: %q", strings.TrimSpace(rest))
		return
	}
	if err := p.result.MetaData.SetItem(key, value); err != nil {
		p.result.warnf("metadata %s: %v", strings.TrimSpace(key), err)
	}
}

// readValue reads a field value: braced, quoted, numeric or macro parts
// joined by '#'.
func (p *bibParser) readValue() (string, error) {
	var b strings.Builder
	for {
		p.skipSpace()
		if p.eof() {
			return "", fmt.Errorf("missing value")
		}

		switch c := p.peek(); {
		case c == '{':
			p.pos++
			s, err := p.readBalanced('}')
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case c == '"':
			p.pos++
			s, err := p.readQuoted()
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case c >= '0' && c <= '9':
			start := p.pos
			for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
				p.pos++
			}
			b.WriteString(p.src[start:p.pos])
		default:
			name := p.readIdent()
			if name == "" {
				return "", fmt.Errorf("unexpected %q in value", c)
			}
			b.WriteString(p.expandMacro(name))
		}

		p.skipSpace()
		if p.eof() || p.peek() != '#' {
			return b.String(), nil
		}
		p.pos++
	}
}

func (p *bibParser) expandMacro(name string) string {
	if s, ok := p.result.MetaData.StringByName(name); ok {
		return s.Content
	}
	lower := strings.ToLower(name)
	if !monthMacros[lower] {
		p.result.warnf("undefined string %q used verbatim", name)
		return name
	}
	return lower
}

// readBalanced reads up to the closer at brace depth zero and consumes it.
// The opening delimiter must already be consumed.
func (p *bibParser) readBalanced(closer byte) (string, error) {
	start := p.pos
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		c := p.src[p.pos]
		switch {
		case c == '{':
			depth++
		case c == '}' && depth > 0:
			depth--
		case c == closer && depth == 0:
			s := p.src[start:p.pos]
			p.pos++
			return s, nil
		case c == '}':
			return "", fmt.Errorf("unbalanced '}'")
		}
	}
	return "", fmt.Errorf("unterminated %q", closer)
}

// readQuoted reads up to the closing '"' outside braces and consumes it.
func (p *bibParser) readQuoted() (string, error) {
	start := p.pos
	depth := 0
	for ; p.pos < len(p.src); p.pos++ {
		switch p.src[p.pos] {
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				s := p.src[start:p.pos]
				p.pos++
				return s, nil
			}
		}
	}
	return "", fmt.Errorf("unterminated quoted value")
}

func (p *bibParser) readIdent() string {
	start := p.pos
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *bibParser) expect(c byte) error {
	p.skipSpace()
	if p.eof() {
		return fmt.Errorf("expected %q, found end of input", c)
	}
	if p.peek() != c {
		return fmt.Errorf("expected %q, found %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *bibParser) skipSpace() {
	for !p.eof() && isSpace(p.peek()) {
		p.pos++
	}
}

func (p *bibParser) eof() bool  { return p.pos >= len(p.src) }
func (p *bibParser) peek() byte { return p.src[p.pos] }

func (p *bibParser) next() byte {
	c := p.src[p.pos]
	p.pos++
	return c
}

func (p *bibParser) lineAt(pos int) int {
	return strings.Count(p.src[:pos], "\n") + 1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentChar(c byte) bool {
	return c > ' ' && c < 0x7f && !strings.ContainsRune(`"#%'(),={}@`, rune(c))
}
