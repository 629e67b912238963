package scanner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

func decodeInt(lexeme string) (interface{}, error) {
	digits := strings.TrimRight(lexeme, "uUlL")
	suffix := strings.ToLower(lexeme[len(digits):])
	iv := IntValue{
		Unsigned: strings.Contains(suffix, "u"),
		Long:     strings.Contains(suffix, "l"),
	}
	base := 10
	switch {
	case strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X"):
		base, digits = 16, digits[2:]
	case len(digits) > 1 && digits[0] == '0':
		base, digits = 8, digits[1:]
	}
	u, err := strconv.ParseUint(digits, base, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed integer constant %q", lexeme)
	}
	iv.Value = int64(u)
	return iv, nil
}

func decodeFloat(lexeme string) (interface{}, error) {
	f, err := strconv.ParseFloat(strings.TrimRight(lexeme, "fFlL"), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed floating constant %q", lexeme)
	}
	return f, nil
}

func decodeChar(lexeme string) (interface{}, error) {
	s, err := Unescape(lexeme[1 : len(lexeme)-1])
	if err != nil {
		return nil, err
	}
	if len(s) != 1 {
		return nil, fmt.Errorf("character constant %s must denote a single byte", lexeme)
	}
	return int64(int8(s[0])), nil
}

func decodeString(lexeme string) (interface{}, error) {
	return Unescape(lexeme[1 : len(lexeme)-1])
}

var errEscape = errors.New("invalid escape sequence")

// Unescape decodes the C escape sequences of a character or string constant
// body (without quotes). Octal and hex escapes denote single bytes.
func Unescape(s string) (string, error) {
	if !strings.Contains(s, `\`) {
		return s, nil
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		i++
		if i == len(s) {
			return "", errEscape
		}
		switch c = s[i]; c {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case 'a':
			sb.WriteByte('\a')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\\', '\'', '"', '?':
			sb.WriteByte(c)
		case 'x':
			j := i + 1
			for j < len(s) && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				return "", fmt.Errorf("%w: \\x without digits", errEscape)
			}
			v, _ := strconv.ParseUint(s[i+1:j], 16, 64)
			sb.WriteByte(byte(v))
			i = j - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j < i+3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i:j], 8, 16)
			sb.WriteByte(byte(v))
			i = j - 1
		default:
			return "", fmt.Errorf("%w: \\%c", errEscape, c)
		}
	}
	return sb.String(), nil
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
