package fastexport

import (
	"bytes"
	"fmt"
)

// escapeTable maps each byte to its escaped form. Bytes 0-126 default to
// themselves (single-byte, no special meaning) except for the named
// C-style escapes; bytes 127-255 are octal-escaped.
var escapeTable [256][]byte

var unescape = map[byte]byte{
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n',
	'r': '\r', 't': '\t', 'v': '\v', '"': '"', '\\': '\\',
}

func init() {
	for x := 0; x < 127; x++ {
		escapeTable[x] = []byte{byte(x)}
	}
	for x := 127; x < 256; x++ {
		escapeTable[x] = []byte(fmt.Sprintf("\\%03o", x))
	}
	reverse := map[byte]byte{}
	for k, v := range unescape {
		reverse[v] = k
	}
	for b, esc := range reverse {
		escapeTable[b] = []byte{'\\', esc}
	}
}

// Dequote reverses Enquote: a leading/trailing quote pair is stripped
// and the C-style escape sequences inside are resolved. Strings that
// were never quoted are returned unchanged.
func Dequote(quoted []byte) []byte {
	if len(quoted) == 0 || quoted[0] != '"' {
		return quoted
	}
	if len(quoted) < 2 || quoted[len(quoted)-1] != '"' {
		panic("fastexport: unterminated quoted path")
	}
	inner := quoted[1 : len(quoted)-1]

	var out bytes.Buffer
	for i := 0; i < len(inner); i++ {
		if inner[i] != '\\' {
			out.WriteByte(inner[i])
			continue
		}
		i++
		if i >= len(inner) {
			panic("fastexport: dangling escape in quoted path")
		}
		if inner[i] >= '0' && inner[i] <= '9' {
			if i+2 >= len(inner) {
				panic("fastexport: truncated octal escape in quoted path")
			}
			var v int
			fmt.Sscanf(string(inner[i:i+3]), "%3o", &v)
			out.WriteByte(byte(v))
			i += 2
			continue
		}
		ch, ok := unescape[inner[i]]
		if !ok {
			panic("fastexport: unknown escape in quoted path")
		}
		out.WriteByte(ch)
	}
	return out.Bytes()
}

// Enquote applies the minimal quoting policy fast-import requires:
// quote only if the path starts with a literal '"' or contains a
// newline; everything else passes through unquoted.
func Enquote(unquoted []byte) []byte {
	if len(unquoted) == 0 {
		return unquoted
	}
	if unquoted[0] != '"' && !bytes.ContainsRune(unquoted, '\n') {
		return unquoted
	}
	var out bytes.Buffer
	out.WriteByte('"')
	for _, b := range unquoted {
		out.Write(escapeTable[b])
	}
	out.WriteByte('"')
	return out.Bytes()
}
