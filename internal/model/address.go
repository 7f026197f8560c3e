package model

// AddressRecord is a single extracted address together with the row of the
// source document it came from. SourceRow is 1-based; 0 means unknown.
type AddressRecord struct {
	Address   string `json:"address"`
	SourceRow int    `json:"sourceRow,omitempty"`
}

// ValidationError reports a malformed address found while parsing a source
// file or a user-supplied payload. Collected, never thrown: one bad row must
// not abort the operation it was part of.
type ValidationError struct {
	Address    string `json:"address"`
	Reason     string `json:"reason"`
	SourceFile string `json:"sourceFile,omitempty"`
}
