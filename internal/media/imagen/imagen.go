// Package imagen is the external raster fallback: Imagen through the Gemini API.
package imagen

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"github.com/yungbote/gradecraft/internal/platform/generr"
)

const provider = "imagen"

type Client struct {
	models *genai.Models
	model  string
}

// New wraps an existing genai client; the gemini backend builds it.
func New(client *genai.Client, model string) (*Client, error) {
	if client == nil {
		return nil, generr.Config(provider, errors.New("genai client required"))
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, generr.Config(provider, errors.New("imagen model required"))
	}
	return &Client{models: client.Models, model: model}, nil
}

// Generate returns the bytes and MIME type of one image.
func (c *Client) Generate(ctx context.Context, prompt string) ([]byte, string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, "", errors.New("image prompt required")
	}
	resp, err := c.models.GenerateImages(ctx, c.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "4:3",
	})
	if err != nil {
		return nil, "", generr.Transport(provider, "generate_images", err)
	}
	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, "", generr.Parse(provider, "generate_images", errors.New("no image returned"))
	}
	img := resp.GeneratedImages[0].Image
	if len(img.ImageBytes) == 0 {
		return nil, "", generr.Parse(provider, "generate_images", errors.New("empty image bytes"))
	}
	mime := strings.TrimSpace(img.MIMEType)
	if mime == "" {
		mime = "image/png"
	}
	return img.ImageBytes, mime, nil
}
