// internal/cw/table.go
// Package cw implements Morse keying: the symbol table, timing classification,
// the decode state machine and message encoding.
package cw

import (
	"strings"
	"unicode"
)

const (
	// Dot is the symbol for a short mark
	Dot = '.'
	// Dash is the symbol for a long mark
	Dash = '-'
	// Unknown is substituted for any code or character outside the table
	Unknown = '?'
	// MaxCodeLength is the longest code in the table. Symbol buffers are capped here.
	MaxCodeLength = 6
)

// Code is a Morse code: a sequence of Dot and Dash symbols.
type Code string

// Marks returns the code as a slice of marks. Symbols other than Dot and Dash are skipped.
func (c Code) Marks() []Mark {
	marks := make([]Mark, 0, len(c))
	for i := 0; i < len(c); i++ {
		switch c[i] {
		case Dot:
			marks = append(marks, MarkDot)
		case Dash:
			marks = append(marks, MarkDash)
		}
	}
	return marks
}

type symbol struct {
	char rune
	code Code
}

// symbols is the complete alphabet: A-Z then 1-9 and 0.
var symbols = [36]symbol{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."},
	{'F', "..-."}, {'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"},
	{'K', "-.-"}, {'L', ".-.."}, {'M', "--"}, {'N', "-."}, {'O', "---"},
	{'P', ".--."}, {'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"}, {'Y', "-.--"},
	{'Z', "--.."},
	{'1', ".----"}, {'2', "..---"}, {'3', "...--"}, {'4', "....-"}, {'5', "....."},
	{'6', "-...."}, {'7', "--..."}, {'8', "---.."}, {'9', "----."}, {'0', "-----"},
}

var (
	byChar = make(map[rune]Code, len(symbols))
	byCode = make(map[Code]rune, len(symbols))
)

func init() {
	for _, s := range symbols {
		byChar[s.char] = s.code
		byCode[s.code] = s.char
	}
}

// Encode returns the code for a character. Lower case letters are accepted.
// Characters outside the alphabet encode to "?".
func Encode(r rune) Code {
	if code, ok := byChar[unicode.ToUpper(r)]; ok {
		return code
	}
	return Code(Unknown)
}

// Decode returns the character for a code, or Unknown.
func Decode(c Code) rune {
	if r, ok := byCode[c]; ok {
		return r
	}
	return Unknown
}

// Known reports whether r has an entry in the table.
func Known(r rune) bool {
	_, ok := byChar[unicode.ToUpper(r)]
	return ok
}

// Alphabet returns every character in table order.
func Alphabet() []rune {
	out := make([]rune, len(symbols))
	for i, s := range symbols {
		out[i] = s.char
	}
	return out
}

// EncodeText renders text as codes joined by sep. Spaces become "/" when sep is
// non-empty and are dropped otherwise. Unknown characters render as "?".
func EncodeText(text, sep string) string {
	var b strings.Builder
	first := true
	for _, r := range text {
		var part string
		if unicode.IsSpace(r) {
			if sep == "" {
				continue
			}
			part = "/"
		} else {
			part = string(Encode(r))
		}
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(part)
		first = false
	}
	return b.String()
}
