package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dropaudit/internal/model"
)

// Sentinel errors mapped to HTTP statuses at the API boundary.
var (
	// ErrNotFound means the referenced collection or comparison does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrDuplicateName means a collection with that name already exists.
	// Name uniqueness is case-sensitive and enforced by the database.
	ErrDuplicateName = eris.New("store: duplicate collection name")
)

// DefaultComparisonLimit bounds ListComparisons when no limit is given.
const DefaultComparisonLimit = 100

// MaxComparisonLimit is the largest page a caller may request.
const MaxComparisonLimit = 1000

// Store is the persistence interface for collections and comparison audits.
// Addresses handed to AddAddresses must already be validated and lowercased;
// the store only guarantees idempotent membership.
type Store interface {
	// Collections
	CreateCollection(ctx context.Context, name, description string) (*model.Collection, error)
	GetCollection(ctx context.Context, id string) (*model.Collection, error)
	ListCollections(ctx context.Context) ([]model.Collection, error)
	DeleteCollection(ctx context.Context, id string) error

	// Membership
	AddAddresses(ctx context.Context, collectionID string, addresses []string) (added int, err error)
	RemoveAddress(ctx context.Context, collectionID, address string) error
	ListAddresses(ctx context.Context, collectionID string) ([]string, error)
	CountAddresses(ctx context.Context, collectionID string) (int, error)

	// Comparison audits
	SaveComparison(ctx context.Context, audit *model.ComparisonAudit) (*model.ComparisonAudit, error)
	GetComparison(ctx context.Context, id string) (*model.ComparisonAudit, error)
	ListComparisons(ctx context.Context, limit int) ([]model.ComparisonAudit, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return eris.Is(err, ErrNotFound)
}

// IsDuplicateName reports whether err is (or wraps) ErrDuplicateName.
func IsDuplicateName(err error) bool {
	return eris.Is(err, ErrDuplicateName)
}

// clampLimit normalizes a requested page size into [1, MaxComparisonLimit].
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultComparisonLimit
	}
	if limit > MaxComparisonLimit {
		return MaxComparisonLimit
	}
	return limit
}
