package services

import (
	"fmt"
	"strings"
	"unicode"
)

// extractJSONObject returns the slice from the first '{' to the last '}'.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// RepairJSON rewrites common LLM informalities into strict JSON: single
// quoted strings, trailing commas, raw control characters and unescaped
// quotes inside strings, Python literals and bare object keys. It only
// rewrites text; nothing is evaluated.
func RepairJSON(in string) string {
	src := []rune(in)
	var out strings.Builder
	out.Grow(len(in) + 16)

	inString := false
	var quote rune

	for i := 0; i < len(src); i++ {
		c := src[i]

		if inString {
			switch {
			case c == '\\' && i+1 < len(src):
				next := src[i+1]
				i++
				if next == '\'' {
					out.WriteRune('\'')
					continue
				}
				if strings.ContainsRune(`"\/bfnrtu`, next) {
					out.WriteRune('\\')
					out.WriteRune(next)
					continue
				}
				// Unknown escape: keep the character literally.
				out.WriteString(`\\`)
				writeStringRune(&out, next)
			case c == quote:
				if closesString(src, i+1) {
					out.WriteRune('"')
					inString = false
				} else {
					if quote == '"' {
						out.WriteString(`\"`)
					} else {
						out.WriteRune(c)
					}
				}
			case c == '"':
				out.WriteString(`\"`)
			default:
				writeStringRune(&out, c)
			}
			continue
		}

		switch {
		case c == '"' || c == '\'':
			inString = true
			quote = c
			out.WriteRune('"')
		case c == ',':
			if j := skipSpace(src, i+1); j < len(src) && (src[j] == '}' || src[j] == ']') {
				continue
			}
			out.WriteRune(c)
		case (c == 'e' || c == 'E') && i > 0 && unicode.IsDigit(src[i-1]):
			out.WriteRune(c)
		case unicode.IsLetter(c) || c == '_':
			j := i
			for j < len(src) && (unicode.IsLetter(src[j]) || unicode.IsDigit(src[j]) || src[j] == '_') {
				j++
			}
			word := string(src[i:j])
			if k := skipSpace(src, j); k < len(src) && src[k] == ':' {
				out.WriteString(`"` + word + `"`)
			} else {
				out.WriteString(literal(word))
			}
			i = j - 1
		default:
			out.WriteRune(c)
		}
	}
	if inString {
		out.WriteRune('"')
	}
	return out.String()
}

// closesString reports whether a quote at position i-1 ends the string,
// judged by the next significant character.
func closesString(src []rune, i int) bool {
	j := skipSpace(src, i)
	if j >= len(src) {
		return true
	}
	switch src[j] {
	case ',', '}', ']', ':':
		return true
	}
	return false
}

func skipSpace(src []rune, i int) int {
	for i < len(src) && unicode.IsSpace(src[i]) {
		i++
	}
	return i
}

func literal(word string) string {
	switch word {
	case "True", "true":
		return "true"
	case "False", "false":
		return "false"
	case "None", "null", "nil", "NaN", "undefined":
		return "null"
	default:
		return `"` + word + `"`
	}
}

func writeStringRune(out *strings.Builder, c rune) {
	switch c {
	case '\n':
		out.WriteString(`\n`)
	case '\r':
		out.WriteString(`\r`)
	case '\t':
		out.WriteString(`\t`)
	default:
		if c < 0x20 {
			fmt.Fprintf(out, `\u%04x`, c)
			return
		}
		out.WriteRune(c)
	}
}
