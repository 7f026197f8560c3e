package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dropaudit/internal/config"
)

func TestNewExtractor_Local(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{Provider: "local", PdfToTextPath: "/usr/bin/pdftotext"})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)

	// Empty provider defaults to local.
	ext, err = NewExtractor(config.OCRConfig{})
	require.NoError(t, err)
	assert.IsType(t, &PdfToText{}, ext)
}

func TestNewExtractor_Mistral(t *testing.T) {
	ext, err := NewExtractor(config.OCRConfig{Provider: "mistral", MistralKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &MistralOCR{}, ext)

	_, err = NewExtractor(config.OCRConfig{Provider: "mistral"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral_api_key")
}

func TestNewExtractor_UnknownProvider(t *testing.T) {
	_, err := NewExtractor(config.OCRConfig{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestPdfToText_BinPath(t *testing.T) {
	p := NewPdfToText("")
	assert.Equal(t, "pdftotext", p.binPath)

	p = NewPdfToText("/custom/pdftotext")
	assert.Equal(t, "/custom/pdftotext", p.binPath)
}

func TestMistralOCR_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req mistralOCRRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Document.DocumentURL, "data:application/pdf;base64,")

		json.NewEncoder(w).Encode(mistralOCRResponse{
			Pages: []mistralOCRPage{
				{Index: 0, Markdown: "page one"},
				{Index: 1, Markdown: "page two"},
			},
		})
	}))
	defer srv.Close()

	m := NewMistralOCR("sk-test", "")
	m.endpoint = srv.URL

	text, err := m.ExtractText(context.Background(), []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "page one\n\npage two", text)
}

func TestMistralOCR_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := NewMistralOCR("sk-test", "")
	m.endpoint = srv.URL

	_, err := m.ExtractText(context.Background(), []byte("%PDF-1.4 fake"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
