package fetch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/nao1215/fedsearch/internal/model"
)

// Decode converts body to a UTF-8 string.
//
// When forced is set it names the encoding (any WHATWG label such as
// "iso-8859-1" or "windows-1251"). Otherwise the encoding is detected from
// contentType, a BOM or a <meta charset> in the first 1024 bytes, falling
// back to UTF-8.
func Decode(body []byte, contentType, forced string) (string, error) {
	if forced != "" {
		enc, err := htmlindex.Get(forced)
		if err != nil {
			return "", fmt.Errorf("%w: unknown charset %q: %w", model.ErrDecodeFailure, forced, err)
		}
		out, err := enc.NewDecoder().Bytes(body)
		if err != nil {
			return "", fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
		}
		return string(out), nil
	}

	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if strings.EqualFold(name, "utf-8") {
		return string(body), nil
	}
	// The detector only sniffs the first 1024 bytes and guesses
	// windows-1252 when they are plain ASCII.
	if !certain && strings.EqualFold(name, "windows-1252") && utf8.Valid(body) {
		return string(body), nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
	}
	return string(out), nil
}
