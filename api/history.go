package api

import (
	"context"
	"net/url"
	"strconv"
)

// SignaturesOptions bounds one page of signature history. Empty cursors are
// left out of the request entirely.
type SignaturesOptions struct {
	// Limit is the page size; zero or negative selects DefaultSignatureLimit.
	Limit int
	// Before returns only signatures older than this one.
	Before string
	// Until stops the page at this signature.
	Until string
}

func (o SignaturesOptions) query() url.Values {
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultSignatureLimit
	}

	values := url.Values{}
	values.Set("limit", strconv.Itoa(limit))
	if o.Before != "" {
		values.Set("before", o.Before)
	}
	if o.Until != "" {
		values.Set("until", o.Until)
	}
	return values
}

func commitmentQuery(commitment Commitment) url.Values {
	values := url.Values{}
	values.Set("commitment", string(commitment.orDefault()))
	return values
}

// GetBlock fetches the block at slot. An empty commitment means finalized.
func (c *HistoricalClient) GetBlock(ctx context.Context, slot uint64, commitment Commitment) (Object, error) {
	endpoint := c.endpoint(blockPath+strconv.FormatUint(slot, 10), commitmentQuery(commitment))

	var block Object
	if err := c.getJSON(ctx, endpoint, &block); err != nil {
		return nil, err
	}
	return block, nil
}

// GetTransaction fetches a transaction by signature. An empty commitment means finalized.
func (c *HistoricalClient) GetTransaction(ctx context.Context, signature string, commitment Commitment) (Object, error) {
	endpoint := c.endpoint(transactionPath+url.PathEscape(signature), commitmentQuery(commitment))

	var tx Object
	if err := c.getJSON(ctx, endpoint, &tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// GetSignaturesForAddress fetches a single page of signature records for
// address, in the order the service returns them. Walking further pages is
// left to the caller: pass the last signature of a page as the next Before.
func (c *HistoricalClient) GetSignaturesForAddress(ctx context.Context, address string, opts SignaturesOptions) ([]Object, error) {
	endpoint := c.endpoint(signaturesPath+url.PathEscape(address), opts.query())

	var sigs []Object
	if err := c.getJSON(ctx, endpoint, &sigs); err != nil {
		return nil, err
	}
	return sigs, nil
}
