package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("dia,intervalo")...)
	assert.Equal(t, []byte("dia,intervalo"), StripBOM(withBOM))
	assert.Equal(t, []byte("dia,intervalo"), StripBOM([]byte("dia,intervalo")))
}

func TestDecodeUTF8WithBOM(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Coopérnico")...)

	out, err := Decode(withBOM, "")
	require.NoError(t, err)
	assert.Equal(t, "Coopérnico", out)
}

func TestDecodeLatin1Fallback(t *testing.T) {
	// "Horária" in Windows-1252: 0xE1 is 'á'.
	latin1 := []byte{'H', 'o', 'r', 0xE1, 'r', 'i', 'a'}
	assert.Equal(t, EncodingWindows1252, DetectEncoding(latin1))

	out, err := Decode(latin1, "")
	require.NoError(t, err)
	assert.Equal(t, "Horária", out)
}

func TestDecodeValidUTF8IgnoresRequestedEncoding(t *testing.T) {
	out, err := Decode([]byte("Galp Plano Dinâmico"), EncodingWindows1252)
	require.NoError(t, err)
	assert.Equal(t, "Galp Plano Dinâmico", out)
}
