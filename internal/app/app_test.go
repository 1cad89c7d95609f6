package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/learning/bundle"
	"github.com/yungbote/gradecraft/internal/media/illustrate"
	"github.com/yungbote/gradecraft/internal/observability"
	"github.com/yungbote/gradecraft/internal/platform/generr"
)

func mockConfig() *config.ProviderConfig {
	cfg := config.Default()
	cfg.Provider = config.ProviderMock
	cfg.DefaultProvider = config.ProviderMock
	return cfg
}

func TestNewWithConfig_MockWiring(t *testing.T) {
	a, err := NewWithConfig(context.Background(), mockConfig(), nil, observability.NewMetrics())
	require.NoError(t, err)
	defer a.Close(context.Background())

	assert.Equal(t, config.ProviderMock, a.Backend.Name())
	assert.Empty(t, a.Backend.FallbackName())

	lesson, err := a.Content.GenerateLesson(context.Background(), 2, "butterflies")
	require.NoError(t, err)
	assert.True(t, lesson.Validation.IsValid, lesson.Validation.Issues)
	assert.Equal(t, 1, lesson.Attempts)

	b, err := a.Bundles.Build(context.Background(), bundle.Request{Topic: "butterflies", GradeLevel: 2, QuestionCount: 2})
	require.NoError(t, err)
	assert.Len(t, b.Quiz.Questions, 2)
	require.NotNil(t, b.Illustration)
	assert.Equal(t, illustrate.StageLLMSVG, b.Illustration.Stage)
}

func TestNewWithConfig_NoCredentialsSkipsRasterProviders(t *testing.T) {
	a, err := NewWithConfig(context.Background(), mockConfig(), nil, nil)
	require.NoError(t, err)

	res, err := a.Images.GenerateImage(context.Background(), "A rainbow", "", 3, illustrate.ImageOptions{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, illustrate.StageLLMSVG, res.Stage)
}

func TestNewWithConfig_MissingPrimaryCredential(t *testing.T) {
	_, err := NewWithConfig(context.Background(), config.Default(), nil, nil)
	require.Error(t, err)
	assert.True(t, generr.IsKind(err, generr.KindConfig))
}
