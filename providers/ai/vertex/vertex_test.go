package vertex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/manifold-ai/manifold/core/ai"
	"github.com/manifold-ai/manifold/core/aierr"
)

func staticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

func TestModelURL_GlobalVersusRegional(t *testing.T) {
	global := New(WithProject("proj"), WithLocation("global"))
	assert.Equal(t,
		"https://aiplatform.googleapis.com/v1/projects/proj/locations/global/publishers/google/models/gemini-2.0-flash:generateContent",
		global.modelURL("gemini-2.0-flash", "generateContent"))

	regional := New(WithProject("proj"), WithLocation("europe-west4"))
	assert.Equal(t,
		"https://europe-west4-aiplatform.googleapis.com/v1/projects/proj/locations/europe-west4/publishers/google/models/gemini-2.0-flash:generateContent",
		regional.modelURL("gemini-2.0-flash", "generateContent"))
}

func TestGenerate_BearerTokenOnTheWire(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/v1/projects/proj/locations/global/publishers/google/models/gemini-2.0-flash:generateContent", request.URL.Path)
		assert.Equal(t, "Bearer mint-token", request.Header.Get("Authorization"))

		writer.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "ok"}]}, "finishReason": "STOP"}]
		}`))
	}))
	defer server.Close()

	provider := New(
		WithProject("proj"),
		WithLocation("global"),
		WithEndpoint(server.URL),
		WithTokenSource(staticToken("mint-token")),
	)

	model, err := provider.LanguageModel("gemini-2.0-flash")
	require.NoError(t, err)

	response, err := model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("hi")}})
	require.NoError(t, err)
	assert.Equal(t, "ok", response.Text())
}

func TestGenerate_MissingProject(t *testing.T) {
	provider := New(WithProject(""), WithTokenSource(staticToken("t")))
	model, err := provider.LanguageModel("gemini-2.0-flash")
	require.NoError(t, err)

	_, err = model.Generate(context.Background(), &ai.Request{Messages: []ai.Message{ai.UserText("hi")}})
	var configErr *aierr.ConfigError
	assert.ErrorAs(t, err, &configErr)
}

func TestEmbeddingModel_BatchLimit(t *testing.T) {
	provider := New(WithProject("proj"), WithTokenSource(staticToken("t")))
	model, err := provider.EmbeddingModel("text-embedding-005")
	require.NoError(t, err)
	assert.Equal(t, 250, model.MaxBatchSize())
}
