package illustrate

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/gradecraft/internal/inference/config"
	"github.com/yungbote/gradecraft/internal/inference/engine"
	"github.com/yungbote/gradecraft/internal/media/raster"
)

type chatFunc func(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error)

func (f chatFunc) Chat(ctx context.Context, req engine.ChatRequest) (engine.ChatResponse, error) {
	return f(ctx, req)
}

func replying(content string) chatFunc {
	return func(context.Context, engine.ChatRequest) (engine.ChatResponse, error) {
		return engine.NewChatResponse(content, engine.Usage{}), nil
	}
}

func rasterReturning(b []byte, err error, calls *int32) RasterFunc {
	return func(context.Context, string) ([]byte, string, error) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		return b, "image/png", err
	}
}

func allEnabled() config.ImageConfig {
	return config.ImageConfig{
		HostedEnabled:       true,
		LLMSVGEnabled:       true,
		ExternalEnabled:     true,
		ProgrammaticEnabled: true,
	}
}

func TestGenerateImage_OnlyProgrammatic(t *testing.T) {
	r := New(config.ImageConfig{ProgrammaticEnabled: true}, Deps{
		Hosted:   rasterReturning([]byte("x"), nil, nil),
		SVG:      replying("<svg><rect/></svg>"),
		External: rasterReturning([]byte("y"), nil, nil),
	})
	res, err := r.GenerateImage(context.Background(), "A happy sun", "sun, sky, clouds", 1, ImageOptions{})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Valid())
	assert.Equal(t, StageProgrammatic, res.Stage)
	assert.True(t, strings.HasPrefix(res.SVGData, "<svg"))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "sun, sky, clouds", res.Description)
}

func TestGenerateDiagram_OnlyProgrammaticIsDeterministic(t *testing.T) {
	r := New(config.ImageConfig{ProgrammaticEnabled: true}, Deps{})
	a, _ := r.GenerateDiagram(context.Background(), "Water cycle", "cycle", 3, "rain, river, sea, cloud")
	b, _ := r.GenerateDiagram(context.Background(), "Water cycle", "cycle", 3, "rain, river, sea, cloud")
	require.NotNil(t, a)
	require.NotNil(t, b)
	assert.Equal(t, a.SVGData, b.SVGData)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestGenerate_AllDisabledReturnsNil(t *testing.T) {
	r := New(config.ImageConfig{}, Deps{})
	res, err := r.GenerateImage(context.Background(), "x", "", 1, ImageOptions{})
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestGenerateImage_HostedFirst(t *testing.T) {
	var svgCalls int32
	r := New(allEnabled(), Deps{
		Hosted: rasterReturning([]byte("png-bytes"), nil, nil),
		SVG: chatFunc(func(context.Context, engine.ChatRequest) (engine.ChatResponse, error) {
			atomic.AddInt32(&svgCalls, 1)
			return engine.NewChatResponse("<svg/>", engine.Usage{}), nil
		}),
	})
	res, err := r.GenerateImage(context.Background(), "A frog", "", 2, ImageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StageHosted, res.Stage)
	raw, _ := base64.StdEncoding.DecodeString(res.Base64Data)
	assert.Equal(t, "png-bytes", string(raw))
	assert.Empty(t, res.SVGData)
	assert.Contains(t, res.PromptUsed, "A frog")
	assert.Zero(t, atomic.LoadInt32(&svgCalls))
}

func TestGenerateImage_SVGIsSanitized(t *testing.T) {
	r := New(allEnabled(), Deps{
		Hosted: rasterReturning(nil, errors.New("quota"), nil),
		SVG:    replying("```svg\n<svg onload=\"x()\"><script>alert(1)</script><circle r=\"3\"/></svg>\n```"),
	})
	res, err := r.GenerateImage(context.Background(), "A ball", "", 1, ImageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StageLLMSVG, res.Stage)
	assert.Contains(t, res.SVGData, "<circle")
	assert.NotContains(t, res.SVGData, "script")
	assert.NotContains(t, res.SVGData, "onload")
}

func TestGenerateImage_RejectedSVGFallsThrough(t *testing.T) {
	var external int32
	r := New(allEnabled(), Deps{
		SVG:      replying("I cannot draw that."),
		External: rasterReturning([]byte("imagen"), nil, &external),
	})
	res, err := r.GenerateImage(context.Background(), "A tree", "", 4, ImageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StageExternal, res.Stage)
	assert.Equal(t, int32(1), atomic.LoadInt32(&external))
}

func TestGenerateDiagram_PrefersSVG(t *testing.T) {
	var hosted int32
	r := New(allEnabled(), Deps{
		Hosted: rasterReturning([]byte("x"), nil, &hosted),
		SVG:    replying(`<svg viewBox="0 0 10 10"><rect width="5" height="5"/></svg>`),
	})
	res, err := r.GenerateDiagram(context.Background(), "Food chain", "flow", 5, "grass, rabbit, fox")
	require.NoError(t, err)
	assert.Equal(t, StageLLMSVG, res.Stage)
	assert.Zero(t, atomic.LoadInt32(&hosted))
}

func TestGenerate_StageTimeoutFallsThrough(t *testing.T) {
	cfg := allEnabled()
	cfg.HostedTimeout = 20 * time.Millisecond
	r := New(cfg, Deps{
		Hosted: func(ctx context.Context, _ string) ([]byte, string, error) {
			<-ctx.Done()
			return nil, "", ctx.Err()
		},
	})
	res, err := r.GenerateImage(context.Background(), "Rain", "", 1, ImageOptions{})
	require.NoError(t, err)
	assert.Equal(t, StageProgrammatic, res.Stage)
}

func TestGenerateImage_PreferRasterDrawsPNG(t *testing.T) {
	rr, err := raster.New("")
	require.NoError(t, err)
	r := New(config.ImageConfig{ProgrammaticEnabled: true}, Deps{Raster: rr})

	res, err := r.GenerateImage(context.Background(), "Volcano", "", 6, ImageOptions{PreferRaster: true, Labels: []string{"Lava"}})
	require.NoError(t, err)
	assert.Equal(t, "image/png", res.MimeType)
	assert.NotEmpty(t, res.Base64Data)
	assert.Empty(t, res.SVGData)
}
