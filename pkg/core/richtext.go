package core

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// RichText is the note body. Data is kept opaque; it is normally RTF but any
// byte sequence round-trips untouched.
type RichText struct {
	Data []byte
}

// RichTextFromPlain wraps plain text in a minimal RTF document.
func RichTextFromPlain(s string) RichText {
	var b strings.Builder
	b.WriteString(`{\rtf1\ansi\ansicpg1252\deff0\uc1{\fonttbl{\f0 Helvetica;}}\f0\fs24 `)
	for _, r := range s {
		switch {
		case r == '\\' || r == '{' || r == '}':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString("\\par\n")
		case r == '\r':
		case r == '\t':
			b.WriteString(`\tab `)
		case r < 0x80:
			b.WriteRune(r)
		case r > 0xFFFF:
			hi, lo := utf16.EncodeRune(r)
			writeUnicode(&b, hi)
			writeUnicode(&b, lo)
		default:
			writeUnicode(&b, r)
		}
	}
	b.WriteString("}")
	return RichText{Data: []byte(b.String())}
}

func writeUnicode(b *strings.Builder, r rune) {
	n := int(r)
	if n > 32767 {
		n -= 65536
	}
	fmt.Fprintf(b, `\u%d?`, n)
}

// IsRTF reports whether the data looks like an RTF document.
func (t RichText) IsRTF() bool {
	return bytes.HasPrefix(bytes.TrimLeft(t.Data, " \t\r\n"), []byte(`{\rtf`))
}

// PlainText projects the rich text to plain text for previews and the watch.
func (t RichText) PlainText() string {
	if !t.IsRTF() {
		return string(t.Data)
	}
	return rtfToText(t.Data)
}

// Title is the first non-empty line of the plain text, NFC-normalised.
func (t RichText) Title() string {
	for _, line := range strings.Split(t.PlainText(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return norm.NFC.String(line)
		}
	}
	return ""
}

// Destinations whose content is never visible text.
var skippedDestinations = map[string]bool{
	"fonttbl":            true,
	"colortbl":           true,
	"expandedcolortbl":   true,
	"stylesheet":         true,
	"info":               true,
	"pict":               true,
	"header":             true,
	"footer":             true,
	"listtable":          true,
	"listoverridetable":  true,
	"generator":          true,
	"filetbl":            true,
	"rsidtbl":            true,
	"xmlnstbl":           true,
	"themedata":          true,
	"colorschememapping": true,
	"datastore":          true,
	"latentstyles":       true,
}

var symbolWords = map[string]string{
	"par":       "\n",
	"line":      "\n",
	"tab":       "\t",
	"emdash":    "\u2014",
	"endash":    "\u2013",
	"bullet":    "\u2022",
	"lquote":    "\u2018",
	"rquote":    "\u2019",
	"ldblquote": "\u201C",
	"rdblquote": "\u201D",
}

type rtfGroup struct {
	skip   bool
	ucSkip int
}

type rtfReader struct {
	src     []byte
	pos     int
	out     strings.Builder
	state   rtfGroup
	stack   []rtfGroup
	pending int  // characters still to drop after a \u
	high    rune // unpaired high surrogate
}

func rtfToText(data []byte) string {
	r := &rtfReader{src: data, state: rtfGroup{ucSkip: 1}}
	r.run()
	return r.out.String()
}

func (r *rtfReader) emit(s string) {
	if r.state.skip {
		return
	}
	r.flushSurrogate()
	r.out.WriteString(s)
}

func (r *rtfReader) emitRune(c rune) {
	if r.state.skip {
		return
	}
	if utf16.IsSurrogate(c) {
		if r.high != 0 {
			if dec := utf16.DecodeRune(r.high, c); dec != '\uFFFD' {
				r.high = 0
				r.out.WriteRune(dec)
				return
			}
		}
		r.flushSurrogate()
		r.high = c
		return
	}
	r.flushSurrogate()
	r.out.WriteRune(c)
}

func (r *rtfReader) flushSurrogate() {
	if r.high != 0 {
		r.out.WriteRune('\uFFFD')
		r.high = 0
	}
}

// consumeFallback reports whether a literal character should be dropped as
// the ANSI fallback of a preceding \u control word.
func (r *rtfReader) consumeFallback() bool {
	if r.pending > 0 {
		r.pending--
		return true
	}
	return false
}

func (r *rtfReader) run() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		r.pos++
		switch c {
		case '{':
			r.stack = append(r.stack, r.state)
			r.pending = 0
		case '}':
			if n := len(r.stack); n > 0 {
				r.state = r.stack[n-1]
				r.stack = r.stack[:n-1]
			}
			r.pending = 0
		case '\\':
			r.control()
		case '\r', '\n':
		default:
			if r.consumeFallback() {
				continue
			}
			start := r.pos - 1
			for r.pos < len(r.src) && !isRTFSpecial(r.src[r.pos]) {
				r.pos++
			}
			r.emit(string(r.src[start:r.pos]))
		}
	}
	r.flushSurrogate()
}

func isRTFSpecial(c byte) bool {
	return c == '{' || c == '}' || c == '\\' || c == '\r' || c == '\n'
}

func (r *rtfReader) control() {
	if r.pos >= len(r.src) {
		return
	}
	c := r.src[r.pos]
	r.pos++

	switch {
	case c == '\\' || c == '{' || c == '}':
		if !r.consumeFallback() {
			r.emit(string(c))
		}
	case c == '\'':
		if r.pos+2 > len(r.src) {
			r.pos = len(r.src)
			return
		}
		v, err := strconv.ParseUint(string(r.src[r.pos:r.pos+2]), 16, 8)
		r.pos += 2
		if err != nil || r.consumeFallback() {
			return
		}
		r.emitRune(charmap.Windows1252.DecodeByte(byte(v)))
	case c == '*':
		r.state.skip = true
	case c == '~':
		r.emit(" ")
	case c == '_':
		r.emit("-")
	case c == '\r' || c == '\n':
		r.emit("\n")
	case isLetter(c):
		r.word()
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (r *rtfReader) word() {
	start := r.pos - 1
	for r.pos < len(r.src) && isLetter(r.src[r.pos]) {
		r.pos++
	}
	name := string(r.src[start:r.pos])

	param, hasParam := 0, false
	pstart := r.pos
	if r.pos < len(r.src) && r.src[r.pos] == '-' {
		r.pos++
	}
	for r.pos < len(r.src) && isDigit(r.src[r.pos]) {
		r.pos++
	}
	if r.pos > pstart {
		if n, err := strconv.Atoi(string(r.src[pstart:r.pos])); err == nil {
			param, hasParam = n, true
		}
	}

	if r.pos < len(r.src) && r.src[r.pos] == ' ' {
		r.pos++
	}

	switch {
	case skippedDestinations[name]:
		r.state.skip = true
	case name == "uc" && hasParam:
		r.state.ucSkip = param
	case name == "u" && hasParam:
		if param < 0 {
			param += 65536
		}
		r.emitRune(rune(param))
		r.pending = r.state.ucSkip
	default:
		if s, ok := symbolWords[name]; ok {
			r.emit(s)
		}
	}
}
