package serp

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
)

// Chain tries providers in order and returns the first successful answer.
// An empty answer counts as success.
type Chain []Provider

// Name joins the member names.
func (c Chain) Name() string {
	names := make([]string, len(c))
	for i, p := range c {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

// Search returns the first provider's hits that did not fail. If all fail,
// the returned error carries every cause.
func (c Chain) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	if len(c) == 0 {
		return nil, unavailable(errors.New("serp: no providers configured"))
	}

	var errs error
	for _, p := range c {
		hits, err := p.Search(ctx, query, limit)
		if err == nil {
			return hits, nil
		}
		if errors.Is(err, ErrEmptyQuery) {
			return nil, err
		}
		errs = errors.CombineErrors(errs, errors.Wrapf(err, "%s", p.Name()))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.WithSecondaryError(ErrProviderUnavailable, errs)
}
