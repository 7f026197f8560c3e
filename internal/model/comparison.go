package model

import "time"

// ComparisonStats holds the derived counts of a reconciliation. The counts
// are computed from the in-memory sets, never re-scanned from the inputs.
type ComparisonStats struct {
	TotalEligible    int `json:"totalEligible"`
	TotalMinted      int `json:"totalMinted"`
	Remaining        int `json:"remaining"`
	InvalidAddresses int `json:"invalidAddresses,omitempty"`
}

// ComparisonResult is the outcome of reconciling an eligible address set
// against a minted set. NotMinted preserves the eligible side's first-seen
// order and is always a subset of it, disjoint from the minted set.
type ComparisonResult struct {
	NotMinted        []AddressRecord   `json:"notMinted"`
	Stats            ComparisonStats   `json:"stats"`
	ValidationErrors []ValidationError `json:"validationErrors,omitempty"`
}

// ComparisonAudit is the persisted trace of one reconciliation. Every
// successful reconciliation writes exactly one audit row; admin history
// views depend on the record being complete.
type ComparisonAudit struct {
	ID            string            `json:"id"`
	EligibleFile  string            `json:"eligibleFile"`
	MintedFile    string            `json:"mintedFile,omitempty"`
	CollectionID  string            `json:"collectionId,omitempty"`
	TotalEligible int               `json:"totalEligible"`
	TotalMinted   int               `json:"totalMinted"`
	Remaining     int               `json:"remaining"`
	InvalidCount  int               `json:"invalidCount"`
	Result        *ComparisonResult `json:"result,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
