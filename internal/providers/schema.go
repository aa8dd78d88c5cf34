// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package providers

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// SchemaTemplate describes the credential schema this service issues.
type SchemaTemplate struct {
	Name       string   `json:"name"`
	Version    string   `json:"version"`
	Attributes []string `json:"attributes"`
}

// LoadSchemaTemplate reads and checks the schema template at path.
func LoadSchemaTemplate(path string) (*SchemaTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema template: %w", err)
	}
	var st SchemaTemplate
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse schema template %s: %w", path, err)
	}
	if err := st.validate(); err != nil {
		return nil, fmt.Errorf("invalid schema template %s: %w", path, err)
	}
	return &st, nil
}

func (st *SchemaTemplate) validate() error {
	if strings.TrimSpace(st.Name) == "" {
		return errors.New("name is required")
	}
	if strings.TrimSpace(st.Version) == "" {
		return errors.New("version is required")
	}
	if len(st.Attributes) == 0 {
		return errors.New("at least one attribute is required")
	}
	seen := make(map[string]struct{}, len(st.Attributes))
	for _, attr := range st.Attributes {
		if strings.TrimSpace(attr) == "" {
			return errors.New("attribute names must not be empty")
		}
		if _, dup := seen[attr]; dup {
			return fmt.Errorf("duplicate attribute %q", attr)
		}
		seen[attr] = struct{}{}
	}
	return nil
}
