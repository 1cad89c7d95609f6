package openaiimage

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/gradecraft/internal/platform/generr"
)

func TestGenerate_Base64(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_, hasFormat := in["response_format"]
		assert.False(t, hasFormat, "gpt-image models reject response_format")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(png), "revised_prompt": " a cat "}},
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "k", Model: "gpt-image-1"}, srv.Client())
	require.NoError(t, err)
	img, err := c.Generate(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, png, img.Bytes)
	assert.Equal(t, "image/png", img.MimeType)
	assert.Equal(t, "a cat", img.RevisedPrompt)
}

func TestGenerate_URLDownload(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/v1/images/generations", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"url": srv.URL + "/blob/1"}}})
	})
	mux.HandleFunc("/blob/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg; charset=binary")
		_, _ = w.Write([]byte("jpegbytes"))
	})

	c, err := New(Config{BaseURL: srv.URL, APIKey: "k", Model: "dall-e-3"}, srv.Client())
	require.NoError(t, err)
	img, err := c.Generate(context.Background(), "a dog")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MimeType)
	assert.Equal(t, "jpegbytes", string(img.Bytes))
}

func TestGenerate_StatusErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "k", Model: "gpt-image-1"}, srv.Client())
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), "x")
	assert.True(t, generr.IsKind(err, generr.KindTransport))
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New(Config{Model: "gpt-image-1"}, nil)
	assert.ErrorIs(t, err, generr.ErrMissingCredential)
}
