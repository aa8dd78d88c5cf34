// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"

	"github.com/tomtom215/credissuer/internal/breaker"
	"github.com/tomtom215/credissuer/internal/cache"
	"github.com/tomtom215/credissuer/internal/config"
)

// maxImageSize bounds images read from disk or the branding server.
const maxImageSize = 8 << 20

// Branding server renders are cached by template and attributes.
const (
	renderCacheSize = 256
	renderCacheTTL  = 10 * time.Minute
)

// loadImage reads an image file and detects its content type.
func loadImage(key, path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, config.NewConfigurationError(key, fmt.Sprintf("%s cannot be read: %v", key, err))
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxImageSize+1))
	if err != nil {
		return nil, config.NewConfigurationError(key, fmt.Sprintf("%s cannot be read: %v", key, err))
	}
	if len(data) > maxImageSize {
		return nil, config.NewConfigurationError(key, fmt.Sprintf("%s is larger than %d bytes", key, maxImageSize))
	}
	return &Image{ContentType: mimetype.Detect(data).String(), Data: data}, nil
}

// StaticCardRenderer serves the same two images for every credential.
type StaticCardRenderer struct {
	front *Image
	back  *Image
}

// NewStaticCardRenderer loads the front and back images.
func NewStaticCardRenderer(frontPath, backPath string) (*StaticCardRenderer, error) {
	front, err := loadImage("STATIC_CARD_FRONT_IMAGE", frontPath)
	if err != nil {
		return nil, err
	}
	back, err := loadImage("STATIC_CARD_BACK_IMAGE", backPath)
	if err != nil {
		return nil, err
	}
	return &StaticCardRenderer{front: front, back: back}, nil
}

// Mode returns the CARD_IMAGE_RENDERING value.
func (r *StaticCardRenderer) Mode() string { return config.CardRenderingStatic }

// RenderFront returns the static front image.
func (r *StaticCardRenderer) RenderFront(context.Context, map[string]string) (*Image, error) {
	return r.front, nil
}

// RenderBack returns the static back image.
func (r *StaticCardRenderer) RenderBack(context.Context, map[string]string) (*Image, error) {
	return r.back, nil
}

// BrandingServerRenderer asks a branding server to render card templates.
type BrandingServerRenderer struct {
	endpoint      string
	frontTemplate string
	backTemplate  string
	httpClient    *http.Client
	breaker       *breaker.Breaker
	renders       *cache.LRU[*Image]
}

// NewBrandingServerRenderer returns a renderer for the given templates.
func NewBrandingServerRenderer(hc *http.Client, endpoint, frontTemplate, backTemplate string) *BrandingServerRenderer {
	return &BrandingServerRenderer{
		endpoint:      strings.TrimSuffix(endpoint, "/"),
		frontTemplate: frontTemplate,
		backTemplate:  backTemplate,
		httpClient:    hc,
		breaker:       breaker.New(breaker.DefaultSettings(BrandingProbeTargetName)),
		renders:       cache.NewLRU[*Image](renderCacheSize, renderCacheTTL),
	}
}

// Mode returns the CARD_IMAGE_RENDERING value.
func (r *BrandingServerRenderer) Mode() string { return config.CardRenderingBrandingServer }

// RenderFront renders the front template.
func (r *BrandingServerRenderer) RenderFront(ctx context.Context, attrs map[string]string) (*Image, error) {
	return r.render(ctx, r.frontTemplate, attrs)
}

// RenderBack renders the back template.
func (r *BrandingServerRenderer) RenderBack(ctx context.Context, attrs map[string]string) (*Image, error) {
	return r.render(ctx, r.backTemplate, attrs)
}

type renderRequest struct {
	Attributes map[string]string `json:"attributes"`
}

// renderKey identifies a render by template and sorted attributes.
func renderKey(template string, attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	h.Write([]byte(template))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(attrs[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (r *BrandingServerRenderer) render(ctx context.Context, template string, attrs map[string]string) (*Image, error) {
	key := renderKey(template, attrs)
	if img, ok := r.renders.Get(key); ok {
		return img, nil
	}

	img, err := r.fetch(ctx, template, attrs)
	if err != nil {
		return nil, err
	}
	r.renders.Add(key, img)
	return img, nil
}

func (r *BrandingServerRenderer) fetch(ctx context.Context, template string, attrs map[string]string) (*Image, error) {
	payload, err := json.Marshal(renderRequest{Attributes: attrs})
	if err != nil {
		return nil, fmt.Errorf("failed to encode render request: %w", err)
	}
	endpoint := r.endpoint + "/templates/" + url.PathEscape(template) + "/render"

	return breaker.Execute(r.breaker, func() (*Image, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create render request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("branding server request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
		if err != nil {
			return nil, fmt.Errorf("failed to read branding server response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("branding server template %s returned status %d: %s",
				template, resp.StatusCode, strings.TrimSpace(string(data)))
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
			contentType = mimetype.Detect(data).String()
		}
		return &Image{ContentType: contentType, Data: data}, nil
	})
}

// GeneratedCardRenderer draws an SVG card from the credential attributes.
type GeneratedCardRenderer struct {
	issuer string
}

// NewGeneratedCardRenderer returns a renderer that titles cards with issuer.
func NewGeneratedCardRenderer(issuer string) *GeneratedCardRenderer {
	return &GeneratedCardRenderer{issuer: issuer}
}

// Mode returns the CARD_IMAGE_RENDERING value.
func (r *GeneratedCardRenderer) Mode() string { return config.CardRenderingGenerated }

// RenderFront draws the issuer name and the attributes.
func (r *GeneratedCardRenderer) RenderFront(_ context.Context, attrs map[string]string) (*Image, error) {
	return &Image{ContentType: svgContentType, Data: cardSVG(r.issuer, "Verifiable Credential", attrs)}, nil
}

// RenderBack draws the issuer name only.
func (r *GeneratedCardRenderer) RenderBack(context.Context, map[string]string) (*Image, error) {
	return &Image{ContentType: svgContentType, Data: cardSVG(r.issuer, "Issued by "+r.issuer, nil)}, nil
}
