package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLFetchesPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "JobAgent")
		_, _ = w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	defer srv.Close()

	result, err := URL(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Contains(t, result.HTML, "hello")
}

func TestURLRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	_, err := URL(context.Background(), srv.URL)
	var fErr *Error
	require.ErrorAs(t, err, &fErr)
	assert.Contains(t, fErr.Message, "410")
}

func TestURLUnreachable(t *testing.T) {
	_, err := URL(context.Background(), "http://127.0.0.1:1/nope")
	var fErr *Error
	require.ErrorAs(t, err, &fErr)
}

func TestExtractMainText(t *testing.T) {
	html := `<html><head><style>body{}</style></head><body>
		<nav>menu menu menu</nav>
		<h1>Senior Go Engineer</h1>
		<p>Build distributed systems.</p>
		<script>alert("hi")</script>
		<footer>footer text</footer>
	</body></html>`

	text, err := ExtractMainText(html)
	require.NoError(t, err)
	assert.Contains(t, text, "Senior Go Engineer")
	assert.Contains(t, text, "Build distributed systems.")
	assert.NotContains(t, text, "menu menu menu")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "footer text")
}

func TestExtractMainTextFallsBackToBody(t *testing.T) {
	text, err := ExtractMainText("<html><body>bare text only</body></html>")
	require.NoError(t, err)
	assert.Contains(t, text, "bare text only")
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("short"))
	assert.True(t, ShouldUseBrowser(""))
	assert.False(t, ShouldUseBrowser(strings.Repeat("long enough content ", 50)))
}
