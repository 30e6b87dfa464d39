package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screenplay-ai-api/internal/config"
)

func TestImageClient_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "雨夜码头", body["prompt"])
		_, _ = io.WriteString(w, `{"data":[{"b64_json":"aGVsbG8="}]}`)
	}))
	defer srv.Close()

	c := NewImageClient(config.ImageConfig{BaseURL: srv.URL + "/", APIKey: "sk-test", Model: "img"})
	img, err := c.Generate(context.Background(), "雨夜码头")
	require.NoError(t, err)
	require.NotNil(t, img)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", img.DataURL())
}

func TestImageClient_NoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"data":[]}`)
	}))
	defer srv.Close()

	img, err := NewImageClient(config.ImageConfig{BaseURL: srv.URL}).Generate(context.Background(), "x")
	require.NoError(t, err)
	assert.Nil(t, img)
}

func TestImageClient_EditAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "/images/edits", r.URL.Path)
		assert.Equal(t, "换成白天", r.FormValue("prompt"))
		f, _, err := r.FormFile("image")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		if string(data) == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"invalid image"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"data":[{"b64_json":"eA=="}]}`)
	}))
	defer srv.Close()

	c := NewImageClient(config.ImageConfig{BaseURL: srv.URL})
	img, err := c.Edit(context.Background(), "换成白天", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, "eA==", img.Data)

	_, err = c.Edit(context.Background(), "换成白天", []byte("bad"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid image")
}
