// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"crypto/sha256"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const svgContentType = "image/svg+xml"

// paletteFor picks a stable background color for seed.
func paletteFor(seed string) string {
	palette := []string{"#1f6feb", "#8250df", "#bf3989", "#1a7f37", "#9a6700", "#cf222e", "#0969da", "#6639ba"}
	sum := sha256.Sum256([]byte(seed))
	return palette[int(sum[0])%len(palette)]
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// initials returns up to two leading letters of the words in name.
func initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				out = append(out, unicode.ToUpper(r))
				break
			}
		}
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// cardSVG draws a credential card. Attributes are listed in key order so
// the output is deterministic.
func cardSVG(title, subtitle string, attrs map[string]string) []byte {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="640" height="400" viewBox="0 0 640 400">`)
	fmt.Fprintf(&b, `<rect width="640" height="400" rx="24" fill="%s"/>`, paletteFor(title))
	fmt.Fprintf(&b, `<text x="32" y="64" font-family="sans-serif" font-size="32" fill="#fff">%s</text>`, escape(title))
	fmt.Fprintf(&b, `<text x="32" y="100" font-family="sans-serif" font-size="18" fill="#fff">%s</text>`, escape(subtitle))
	for i, k := range keys {
		if i == 10 {
			break
		}
		fmt.Fprintf(&b, `<text x="32" y="%d" font-family="monospace" font-size="16" fill="#fff">%s: %s</text>`,
			150+i*24, escape(k), escape(attrs[k]))
	}
	b.WriteString(`</svg>`)
	return []byte(b.String())
}

// iconSVG draws a round icon with the initials of name.
func iconSVG(name string) []byte {
	return []byte(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="128" height="128" viewBox="0 0 128 128">`+
			`<circle cx="64" cy="64" r="64" fill="%s"/>`+
			`<text x="64" y="80" text-anchor="middle" font-family="sans-serif" font-size="48" fill="#fff">%s</text>`+
			`</svg>`,
		paletteFor(name), escape(initials(name))))
}
