// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"context"

	"github.com/tomtom215/credissuer/internal/config"
)

// StaticIconProvider serves an icon loaded from disk.
type StaticIconProvider struct {
	icon *Image
}

// NewStaticIconProvider loads the icon at path.
func NewStaticIconProvider(path string) (*StaticIconProvider, error) {
	icon, err := loadImage("CONNECTION_ICON_PATH", path)
	if err != nil {
		return nil, err
	}
	return &StaticIconProvider{icon: icon}, nil
}

// Mode returns the CONNECTION_IMAGE_PROVIDER value.
func (p *StaticIconProvider) Mode() string { return config.ConnectionIconStatic }

// Icon returns the loaded icon.
func (p *StaticIconProvider) Icon(context.Context) (*Image, error) { return p.icon, nil }

// GeneratedIconProvider draws an initials icon for the issuer.
type GeneratedIconProvider struct {
	icon *Image
}

// NewGeneratedIconProvider draws the icon once for name.
func NewGeneratedIconProvider(name string) *GeneratedIconProvider {
	return &GeneratedIconProvider{icon: &Image{ContentType: svgContentType, Data: iconSVG(name)}}
}

// Mode returns the CONNECTION_IMAGE_PROVIDER value.
func (p *GeneratedIconProvider) Mode() string { return config.ConnectionIconGenerated }

// Icon returns the generated icon.
func (p *GeneratedIconProvider) Icon(context.Context) (*Image, error) { return p.icon, nil }
