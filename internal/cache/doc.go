// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

/*
Package cache provides a thread-safe, bounded LRU cache with TTL expiry.

The branding server renderer keeps recent card renders here so repeated
requests for the same template and attributes do not go back over the
network.

	c := cache.NewLRU[*Image](256, 10*time.Minute)
	if img, ok := c.Get(key); ok {
	    return img, nil
	}
	c.Add(key, img)

Get, Add and Remove are O(1). Expired entries are dropped lazily on access
or in bulk through CleanupExpired.
*/
package cache
