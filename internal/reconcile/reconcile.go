// Package reconcile computes which eligible addresses are absent from a
// minted set and records an audit of every comparison.
package reconcile

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dropaudit/internal/fileparse"
	"github.com/sells-group/dropaudit/internal/model"
	"github.com/sells-group/dropaudit/internal/store"
)

// Source tags attached to validation errors so callers can attribute
// malformed rows to the right input.
const (
	SourceEligible = "eligible"
	SourceMinted   = "minted"
)

// Reconciler diffs eligible against minted address sets. Every successful
// reconciliation persists a ComparisonAudit; there is no opt-out, because
// admin history views depend on the record being complete.
type Reconciler struct {
	store store.Store
}

// New creates a Reconciler backed by the given store.
func New(s store.Store) *Reconciler {
	return &Reconciler{store: s}
}

// CompareFiles reconciles two uploaded address-list files.
func (r *Reconciler) CompareFiles(ctx context.Context, eligibleName string, eligibleData []byte, mintedName string, mintedData []byte) (*model.ComparisonResult, error) {
	eligible, err := fileparse.Parse(eligibleName, eligibleData)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: parse eligible file")
	}
	minted, err := fileparse.Parse(mintedName, mintedData)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: parse minted file")
	}

	result := diff(eligible.Addresses, memberSet(minted.Addresses), len(minted.Addresses))
	result.ValidationErrors = append(
		tagErrors(eligible.Errors, SourceEligible),
		tagErrors(minted.Errors, SourceMinted)...,
	)
	result.Stats.InvalidAddresses = len(result.ValidationErrors)

	audit := &model.ComparisonAudit{
		EligibleFile:  eligibleName,
		MintedFile:    mintedName,
		TotalEligible: result.Stats.TotalEligible,
		TotalMinted:   result.Stats.TotalMinted,
		Remaining:     result.Stats.Remaining,
		InvalidCount:  result.Stats.InvalidAddresses,
		Result:        result,
	}
	if _, err := r.store.SaveComparison(ctx, audit); err != nil {
		return nil, eris.Wrap(err, "reconcile: save audit")
	}

	zap.L().Info("comparison complete",
		zap.String("eligible", eligibleName),
		zap.String("minted", mintedName),
		zap.Int("remaining", result.Stats.Remaining),
	)
	return result, nil
}

// CompareCollection reconciles an uploaded eligible file against the full
// membership of a persistent collection.
func (r *Reconciler) CompareCollection(ctx context.Context, collectionID, eligibleName string, eligibleData []byte) (*model.ComparisonResult, error) {
	coll, err := r.store.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}

	eligible, err := fileparse.Parse(eligibleName, eligibleData)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: parse eligible file")
	}

	members, err := r.store.ListAddresses(ctx, collectionID)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: list collection members")
	}

	mintedSet := make(map[string]struct{}, len(members))
	for _, m := range members {
		mintedSet[m] = struct{}{}
	}

	result := diff(eligible.Addresses, mintedSet, len(mintedSet))
	result.ValidationErrors = tagErrors(eligible.Errors, SourceEligible)
	result.Stats.InvalidAddresses = len(result.ValidationErrors)

	audit := &model.ComparisonAudit{
		EligibleFile:  eligibleName,
		CollectionID:  collectionID,
		TotalEligible: result.Stats.TotalEligible,
		TotalMinted:   result.Stats.TotalMinted,
		Remaining:     result.Stats.Remaining,
		InvalidCount:  result.Stats.InvalidAddresses,
		Result:        result,
	}
	if _, err := r.store.SaveComparison(ctx, audit); err != nil {
		return nil, eris.Wrap(err, "reconcile: save audit")
	}

	zap.L().Info("collection comparison complete",
		zap.String("collection", coll.Name),
		zap.Int("remaining", result.Stats.Remaining),
	)
	return result, nil
}

// diff filters eligible entries absent from the minted set, preserving the
// eligible side's order. Stats are derived from the sets, not re-scanned.
func diff(eligible []model.AddressRecord, mintedSet map[string]struct{}, totalMinted int) *model.ComparisonResult {
	notMinted := make([]model.AddressRecord, 0, len(eligible))
	for _, rec := range eligible {
		if _, minted := mintedSet[rec.Address]; !minted {
			notMinted = append(notMinted, rec)
		}
	}

	return &model.ComparisonResult{
		NotMinted: notMinted,
		Stats: model.ComparisonStats{
			TotalEligible: len(eligible),
			TotalMinted:   totalMinted,
			Remaining:     len(notMinted),
		},
	}
}

func memberSet(records []model.AddressRecord) map[string]struct{} {
	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[r.Address] = struct{}{}
	}
	return set
}

func tagErrors(errs []model.ValidationError, source string) []model.ValidationError {
	if len(errs) == 0 {
		return nil
	}
	tagged := make([]model.ValidationError, len(errs))
	for i, e := range errs {
		e.SourceFile = source
		tagged[i] = e
	}
	return tagged
}
