// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveSessionSecret returns explicit unchanged when it is set, otherwise
// the lowercase hex SHA-256 of agentURL + agentName + myURL.
func DeriveSessionSecret(explicit, agentURL, agentName, myURL string) string {
	if explicit != "" {
		return explicit
	}
	sum := sha256.Sum256([]byte(agentURL + agentName + myURL))
	return hex.EncodeToString(sum[:])
}
