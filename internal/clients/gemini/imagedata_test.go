package gemini

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripDataURIPrefix(t *testing.T) {
	tests := []struct {
		input   string
		mime    string
		payload string
	}{
		{"data:image/png;base64,AAAA", "image/png", "AAAA"},
		{"data:image/jpeg;base64,/9j/", "image/jpeg", "/9j/"},
		{"data:image/svg+xml;charset=utf-8;base64,PHN2Zz4=", "image/svg+xml", "PHN2Zz4="},
		{"data:;base64,AAAA", "", "AAAA"},
		{"AAAA", "", "AAAA"},
		{"  data:image/webp;base64,UklG  ", "image/webp", "UklG"},
	}

	for _, tt := range tests {
		mime, payload := StripDataURIPrefix(tt.input)
		assert.Equal(t, tt.mime, mime, tt.input)
		assert.Equal(t, tt.payload, payload, tt.input)
	}
}

func TestDecodeImage(t *testing.T) {
	data, mime, err := DecodeImage(pngDataURI())
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mime)
}

func TestDecodeImage_SniffsMissingMime(t *testing.T) {
	data, mime, err := DecodeImage(base64.StdEncoding.EncodeToString(pngBytes))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
	assert.Equal(t, "image/png", mime)
}

func TestDecodeImage_UnknownBytesDefaultToPNG(t *testing.T) {
	_, mime, err := DecodeImage(base64.StdEncoding.EncodeToString([]byte("plain text")))
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
}

func TestDecodeImage_UnpaddedPayload(t *testing.T) {
	raw := base64.RawStdEncoding.EncodeToString([]byte("ab"))
	data, _, err := DecodeImage(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), data)
}

func TestDecodeImage_Errors(t *testing.T) {
	_, _, err := DecodeImage("")
	assert.Error(t, err)

	_, _, err = DecodeImage("data:image/png;base64,")
	assert.Error(t, err)

	_, _, err = DecodeImage("not base64 at all!")
	assert.Error(t, err)
}

func TestEncodeDataURI(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,YWI=", EncodeDataURI("image/jpeg", []byte("ab")))
	assert.Equal(t, "data:image/png;base64,YWI=", EncodeDataURI("", []byte("ab")))
}
