package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataURI(t *testing.T) {
	t.Run("strips the envelope and decodes the payload", func(t *testing.T) {
		mimeType, data, err := ParseDataURI("data:image/jpeg;base64,aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", mimeType)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("drops parameters from the MIME type", func(t *testing.T) {
		mimeType, data, err := ParseDataURI("data:image/png;name=a.png;base64,aGVsbG8=")
		require.NoError(t, err)
		assert.Equal(t, "image/png", mimeType)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("rejects values without a data prefix", func(t *testing.T) {
		_, _, err := ParseDataURI("https://example.com/a.png")
		assert.ErrorIs(t, err, ErrInvalidDataURI)
	})

	t.Run("rejects values without a payload separator", func(t *testing.T) {
		_, _, err := ParseDataURI("data:image/png;base64")
		assert.ErrorIs(t, err, ErrInvalidDataURI)
	})

	t.Run("reports undecodable payloads", func(t *testing.T) {
		_, _, err := ParseDataURI("data:image/png;base64,!!!")
		assert.ErrorContains(t, err, "failed to decode base64 data")
	})
}

func TestEncodeDataURI(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", EncodeDataURI("image/png", []byte("hello")))
}

func TestNormalizeMimeType(t *testing.T) {
	assert.Equal(t, "image/png", NormalizeMimeType("Image/PNG; charset=binary"))
	assert.Equal(t, "", NormalizeMimeType("application/octet-stream"))
	assert.Equal(t, "", NormalizeMimeType(""))
}

func TestInferMimeTypeFromURL(t *testing.T) {
	tests := map[string]string{
		"https://example.com/a.PNG":  "image/png",
		"https://example.com/a.jpeg": "image/jpeg",
		"https://example.com/a.webp": "image/webp",
		"https://example.com/a.gif":  "image/gif",
		"https://example.com/a":      "image/jpeg",
	}
	for url, want := range tests {
		assert.Equal(t, want, InferMimeTypeFromURL(url), url)
	}
}

func TestGenerateImageFileName(t *testing.T) {
	name := GenerateImageFileName("image/png")
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f-]{36}_\d+_[0-9a-f]{8}\.png$`), name)
	assert.NotEqual(t, name, GenerateImageFileName("image/png"))
	assert.Regexp(t, `^images/\d{4}-\d{2}-\d{2}/$`, GenerateImagePath())
}

func TestDownloadImageFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/typed":
			w.Header().Set("Content-Type", "image/gif")
			_, _ = w.Write([]byte("GIF89a"))
		case "/untyped.png":
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("png"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	data, mimeType, err := DownloadImageFromURL(ctx, srv.URL+"/typed")
	require.NoError(t, err)
	assert.Equal(t, "image/gif", mimeType)
	assert.Equal(t, []byte("GIF89a"), data)

	_, mimeType, err = DownloadImageFromURL(ctx, srv.URL+"/untyped.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)

	_, _, err = DownloadImageFromURL(ctx, srv.URL+"/missing")
	assert.ErrorContains(t, err, "status code 404")
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "abc", TruncateForLog("abc", 5))
	assert.Equal(t, "ab...", TruncateForLog("abcdefgh", 5))
	assert.Equal(t, "ab", TruncateForLog("abcdefgh", 2))
}
