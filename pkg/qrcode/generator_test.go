package qrcode_test

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/qrcode"
)

const provisioningURI = "otpauth://totp/restauth:alice@example.com?algorithm=SHA1&digits=6&issuer=restauth&period=30&secret=JBSWY3DPEHPK3PXP"

func TestGenerate(t *testing.T) {
	t.Parallel()

	for _, content := range []string{"", "   \t\n"} {
		_, err := qrcode.Generate(content, 256)
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
	}

	tests := []struct {
		name string
		size int
		want int
	}{
		{"explicit size", 128, 128},
		{"default size", 0, qrcode.DefaultSize},
		{"negative size", -5, qrcode.DefaultSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := qrcode.Generate(provisioningURI, tt.size)
			require.NoError(t, err)

			img, err := png.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, img.Bounds().Dx())
			assert.Equal(t, tt.want, img.Bounds().Dy())
		})
	}
}

func TestDataURI(t *testing.T) {
	t.Parallel()

	uri, err := qrcode.DataURI(provisioningURI, 200)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)

	_, err = qrcode.DataURI(" ", 200)
	assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
}
