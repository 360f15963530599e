package parse

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"
)

var unescapes = map[rune]rune{
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'`':  '`',
	'$':  '$',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'b':  '\b',
	'f':  '\f',
	'v':  '\v',
	'0':  0,
}

// unquoteString takes a quoted string literal (including the surrounding
// single or double quotes) and returns the unquoted string, along with any
// error encountered.
func unquoteString(s string) (string, error) {
	n := len(s)
	if n < 2 {
		return "", errors.New("too short a string")
	}
	if s[0] != s[n-1] || (s[0] != '\'' && s[0] != '"') {
		return "", errors.New("string not surrounded by quotes")
	}
	return unescape(s[1 : n-1])
}

// unescape processes the escape sequences of a string or template literal
// body.  Unrecognized escapes stand for the escaped character itself, and a
// backslash before a line break continues the line.
func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var result = make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if r != '\\' {
			result = append(result, r)
			continue
		}
		if i >= len(s) {
			return "", errors.New("unterminated escape sequence")
		}
		r, size = utf8.DecodeRuneInString(s[i:])
		i += size
		switch {
		case r == 'u' && i < len(s) && s[i] == '{':
			var end = strings.IndexByte(s[i:], '}')
			if end == -1 {
				return "", errors.New("error scanning unicode escape, expect \\u{N...}")
			}
			num, err := strconv.ParseUint(s[i+1:i+end], 16, 32)
			if err != nil {
				return "", err
			}
			result = append(result, rune(num))
			i += end + 1
		case r == 'u', r == 'x':
			var width = 4
			if r == 'x' {
				width = 2
			}
			if i+width > len(s) {
				return "", errors.New("error scanning escape, expect \\uNNNN or \\xNN")
			}
			num, err := strconv.ParseUint(s[i:i+width], 16, 32)
			if err != nil {
				return "", err
			}
			result = append(result, rune(num))
			i += width
		case r == '\n':
		case r == '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		default:
			if replacement, ok := unescapes[r]; ok {
				r = replacement
			}
			result = append(result, r)
		}
	}
	return string(result), nil
}
