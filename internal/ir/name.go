package ir

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// cReservedWords are identifiers that cannot be used as C names.
var cReservedWords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true,
	"const": true, "continue": true, "default": true, "do": true,
	"double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true,
	"int": true, "long": true, "register": true, "return": true,
	"short": true, "signed": true, "sizeof": true, "static": true,
	"struct": true, "switch": true, "typedef": true, "union": true,
	"unsigned": true, "void": true, "volatile": true, "while": true,
	"inline": true, "restrict": true, "_Bool": true, "_Complex": true,
	"_Imaginary": true,
}

// SanitizeName maps a source identifier to a valid C identifier.
//
// The identifier is NFC-normalized first so that visually identical
// spellings map to the same C name, then every byte outside
// [a-zA-Z0-9_] is replaced by an underscore. A leading digit gets an
// underscore prefix and C reserved words get an underscore suffix.
func SanitizeName(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == '_' || (r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	result := b.String()

	if result != "" && unicode.IsDigit(rune(result[0])) {
		result = "_" + result
	}
	if cReservedWords[result] {
		result += "_"
	}
	return result
}
