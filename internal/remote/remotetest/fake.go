// Package remotetest provides an in-memory sale-event server for tests.
package remotetest

import (
	"context"
	"sync"

	"github.com/bourse-pos/bourse/internal/remote"
)

// FakeAPI is a scriptable remote.API that counts its calls.
type FakeAPI struct {
	mu sync.Mutex

	Catalog   []remote.CatalogItem
	FetchErr  error
	SubmitErr error

	// Verdict decides the result for each submitted sale. When nil every
	// sale is confirmed. Returning ok=false omits the sale from the results.
	Verdict func(sale remote.SaleSubmission) (result remote.SaleResult, ok bool)

	// Extra results appended to every batch response.
	Extra []remote.SaleResult

	fetchCalls  int
	submitCalls int
	submitted   [][]remote.SaleSubmission
}

var _ remote.API = (*FakeAPI)(nil)

// FetchCatalog returns the scripted catalog.
func (f *FakeAPI) FetchCatalog(ctx context.Context, editionID string) ([]remote.CatalogItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	out := make([]remote.CatalogItem, len(f.Catalog))
	copy(out, f.Catalog)
	return out, nil
}

// SubmitSalesBatch records the batch and answers with the scripted verdicts.
func (f *FakeAPI) SubmitSalesBatch(ctx context.Context, editionID string, sales []remote.SaleSubmission) ([]remote.SaleResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitCalls++

	batch := make([]remote.SaleSubmission, len(sales))
	copy(batch, sales)
	f.submitted = append(f.submitted, batch)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}

	results := make([]remote.SaleResult, 0, len(sales)+len(f.Extra))
	for _, sale := range sales {
		if f.Verdict == nil {
			results = append(results, remote.SaleResult{ClientID: sale.ClientID, Status: remote.ResultSynced})
			continue
		}
		if result, ok := f.Verdict(sale); ok {
			results = append(results, result)
		}
	}
	return append(results, f.Extra...), nil
}

// FetchCalls returns how many times FetchCatalog was called.
func (f *FakeAPI) FetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// SubmitCalls returns how many times SubmitSalesBatch was called.
func (f *FakeAPI) SubmitCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitCalls
}

// Submitted returns every batch received so far.
func (f *FakeAPI) Submitted() [][]remote.SaleSubmission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Reject returns a verdict rejecting the listed article IDs with message and
// confirming everything else.
func Reject(message string, articleIDs ...string) func(remote.SaleSubmission) (remote.SaleResult, bool) {
	rejected := make(map[string]bool, len(articleIDs))
	for _, id := range articleIDs {
		rejected[id] = true
	}
	return func(sale remote.SaleSubmission) (remote.SaleResult, bool) {
		if rejected[sale.ArticleID] {
			return remote.SaleResult{ClientID: sale.ClientID, Status: remote.ResultRejected, ErrorMessage: message}, true
		}
		return remote.SaleResult{ClientID: sale.ClientID, Status: remote.ResultSynced}, true
	}
}
