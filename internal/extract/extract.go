// Package extract scans free text for EVM account identifiers and filters
// the candidates down to plausible real addresses.
package extract

import (
	"regexp"
	"strings"
)

// BurnAddress is the all-zero identifier, conventionally "no recipient".
const BurnAddress = "0x0000000000000000000000000000000000000000"

// LeadingZeroNibbleLimit is the number of leading zero nibbles at which a
// candidate is treated as a zero-padded hex blob (ABI-encoded topics and the
// like) rather than a real account. The value is domain-tuned, not derived;
// recalibrate against real corpora before changing it.
const LeadingZeroNibbleLimit = 30

// candidatePattern matches the raw address grammar. Word boundaries against
// adjacent hex characters are enforced by hasHexNeighbor, since RE2 has no
// lookaround.
var candidatePattern = regexp.MustCompile(`0x[0-9a-fA-F]{40}`)

var validPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsValidAddress reports whether s matches the address grammar exactly.
// It applies no noise heuristics; use it where the caller supplied the
// address deliberately (collection bulk-add) rather than scraped it.
func IsValidAddress(s string) bool {
	return validPattern.MatchString(s)
}

// Addresses extracts all unique addresses from text, lowercased, in
// first-seen order. Candidates embedded in longer hex runs, the burn
// address, and zero-padded blobs are rejected.
func Addresses(text string) []string {
	var out []string
	seen := make(map[string]struct{})

	for _, loc := range candidatePattern.FindAllStringIndex(text, -1) {
		if hasHexNeighbor(text, loc[0], loc[1]) {
			continue
		}

		addr := strings.ToLower(text[loc[0]:loc[1]])
		if addr == BurnAddress {
			continue
		}
		if leadingZeroNibbles(addr) >= LeadingZeroNibbleLimit {
			continue
		}

		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	return out
}

// hasHexNeighbor reports whether the match at [start,end) touches a hex
// character on either side, i.e. is part of a longer hex run.
func hasHexNeighbor(text string, start, end int) bool {
	if start > 0 && isHexChar(text[start-1]) {
		return true
	}
	if end < len(text) && isHexChar(text[end]) {
		return true
	}
	return false
}

func isHexChar(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// leadingZeroNibbles counts leading '0' characters after the 0x prefix.
func leadingZeroNibbles(addr string) int {
	n := 0
	for _, c := range addr[2:] {
		if c != '0' {
			break
		}
		n++
	}
	return n
}
