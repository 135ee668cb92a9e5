package espat

import "powernode-go/x/conv"

// lineBuf appends into a fixed slice and latches on overflow.
type lineBuf struct {
	b    []byte
	n    int
	over bool
}

func newLine(b []byte) lineBuf { return lineBuf{b: b} }

func (l *lineBuf) str(s string) {
	if l.over {
		return
	}
	if len(s) > len(l.b)-l.n {
		l.over = true
		return
	}
	l.n += copy(l.b[l.n:], s)
}

func (l *lineBuf) raw(p []byte) {
	if l.over {
		return
	}
	if len(p) > len(l.b)-l.n {
		l.over = true
		return
	}
	l.n += copy(l.b[l.n:], p)
}

func (l *lineBuf) byte(c byte) {
	if l.over {
		return
	}
	if l.n >= len(l.b) {
		l.over = true
		return
	}
	l.b[l.n] = c
	l.n++
}

func (l *lineBuf) uint(v uint32) {
	var tmp [10]byte
	l.raw(conv.Utoa(tmp[:], uint64(v)))
}

// quoted writes s between double quotes, escaping quote, comma and
// backslash. It reports false for control bytes, which the modem cannot
// carry inside a quoted parameter.
func (l *lineBuf) quoted(s string) bool {
	if !printable(s) {
		return false
	}
	l.byte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', ',', '\\':
			l.byte('\\')
			l.byte(c)
		default:
			l.byte(c)
		}
	}
	l.byte('"')
	return true
}

func (l *lineBuf) bytes() []byte { return l.b[:l.n] }

func printable(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c == 0x7f {
			return false
		}
	}
	return true
}
