package api

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/ascgate/internal/auth"
	"github.com/dmitrijs2005/ascgate/internal/common"
)

// FindOrCreate executes lookup (normally a filtered GET) and returns its
// first record. When the lookup finds nothing, the request returned by
// create is executed and its resource returned with created set.
//
// The pair is not atomic: two concurrent callers may both create.
func (c *Client) FindOrCreate(ctx context.Context, creds auth.Credentials, lookup Request, create func() Request) (res Resource, created bool, err error) {
	found, err := c.Execute(ctx, lookup, creds)
	if err != nil {
		return Resource{}, false, fmt.Errorf("lookup %s: %w", lookup.Endpoint, err)
	}
	if found.Opaque {
		return Resource{}, false, fmt.Errorf("%w: lookup %s returned a non JSON body", common.ErrDomain, lookup.Endpoint)
	}
	if r, ok := found.First(); ok {
		return r, false, nil
	}

	req := create()
	made, err := c.Execute(ctx, req, creds)
	if err != nil {
		return Resource{}, false, fmt.Errorf("create %s: %w", req.Endpoint, err)
	}
	r, ok := made.First()
	if !ok {
		return Resource{}, false, fmt.Errorf("%w: create %s returned no resource", common.ErrDomain, req.Endpoint)
	}
	return r, true, nil
}
