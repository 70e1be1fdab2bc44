package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as text, replacing invalid UTF-8 with U+FFFD and dropping a
// leading byte order mark.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return strings.TrimPrefix(s, "\ufeff"), nil
}
