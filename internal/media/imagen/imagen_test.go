package imagen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/yungbote/gradecraft/internal/platform/generr"
)

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, "imagen-3.0-generate-002")
	assert.True(t, generr.IsKind(err, generr.KindConfig))

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: "k", Backend: genai.BackendGeminiAPI})
	require.NoError(t, err)
	_, err = New(client, " ")
	assert.True(t, generr.IsKind(err, generr.KindConfig))
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: "k", Backend: genai.BackendGeminiAPI})
	require.NoError(t, err)
	c, err := New(client, "imagen-3.0-generate-002")
	require.NoError(t, err)

	_, _, err = c.Generate(context.Background(), "  ")
	assert.Error(t, err)
}
