// Tariffsync - Marketplace Tariff Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tariffsync

package logging

// RedactSecret masks a credential for logs, keeping the first and last four
// characters of long values ("eyJh...kpXV") and hiding short ones entirely.
func RedactSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 12:
		return "***"
	default:
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
}
