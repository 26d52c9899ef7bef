package charset

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1252 Encoding = "windows-1252"
	EncodingISO88591    Encoding = "iso-8859-1"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// StripBOM removes a leading UTF-8 byte-order marker. The upstream CSV is
// published with a BOM and parsers must never see it.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

// DetectEncoding detects the encoding of a byte buffer. The source file is
// UTF-8 with BOM; cached copies written by old versions may be Latin-1.
func DetectEncoding(data []byte) Encoding {
	if bytes.HasPrefix(data, utf8BOM) {
		return EncodingUTF8
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	// Portuguese diacritics outside valid UTF-8 sequences mean a
	// single-byte Latin encoding.
	return EncodingWindows1252
}

// Decode converts a byte buffer from the specified encoding to a UTF-8
// string, stripping any byte-order marker first.
func Decode(data []byte, enc Encoding) (string, error) {
	data = StripBOM(data)

	if enc == "" {
		enc = DetectEncoding(data)
	}

	// Valid UTF-8 passes through untouched regardless of the requested
	// encoding, which protects against double-decoding cached files.
	if utf8.Valid(data) {
		return string(data), nil
	}

	var cm *charmap.Charmap
	switch enc {
	case EncodingISO88591:
		cm = charmap.ISO8859_1
	default:
		cm = charmap.Windows1252
	}

	reader := transform.NewReader(strings.NewReader(string(data)), cm.NewDecoder())
	result, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(result), nil
}
