package dedup

import (
	"context"
	"fmt"

	"github.com/buslistings/bus-scraper/internal/models"
)

// Index looks up a fingerprint in the persisted fingerprint index. The
// index is maintained by the persistence pipeline; the resolver only reads.
type Index interface {
	Lookup(ctx context.Context, fingerprint string) (int64, bool, error)
}

// Resolution is the advisory merge decision for one record. Two resolvers
// racing on the same fingerprint may both report IsNew; the pipeline's
// atomic upsert absorbs that.
type Resolution struct {
	Fingerprint string
	IsNew       bool
	ExistingID  int64
}

type Resolver struct {
	index Index
}

func NewResolver(index Index) *Resolver {
	return &Resolver{index: index}
}

func (r *Resolver) Resolve(ctx context.Context, record models.ListingRecord) (Resolution, error) {
	fp := Fingerprint(record)

	id, found, err := r.index.Lookup(ctx, fp)
	if err != nil {
		return Resolution{}, fmt.Errorf("fingerprint lookup: %w", err)
	}

	if !found {
		return Resolution{Fingerprint: fp, IsNew: true}, nil
	}
	return Resolution{Fingerprint: fp, ExistingID: id}, nil
}
