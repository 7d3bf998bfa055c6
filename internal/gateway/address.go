package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/storefront-checkout/internal/domain/address"
)

var _ address.Service = (*Client)(nil)

// AddAddress saves a new address and returns the authoritative list.
func (c *Client) AddAddress(ctx context.Context, customerID string, in address.Input) (*address.MutationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url("/customers/%s/addresses", url.PathEscape(customerID)),
		jsonBody(func(e *jx.Encoder) {
			encodeAddressInput(e, in)
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	var res *address.MutationResult
	if err := c.do(req, func(d *jx.Decoder) error {
		res, err = decodeAddressMutation(d)
		return err
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// SetDefaultAddress marks the address as the customer's default and returns
// the authoritative list.
func (c *Client) SetDefaultAddress(ctx context.Context, customerID, addressID string) (*address.MutationResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut,
		c.url("/customers/%s/addresses/%s/default",
			url.PathEscape(customerID), url.PathEscape(addressID)), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	var res *address.MutationResult
	if err := c.do(req, func(d *jx.Decoder) error {
		res, err = decodeAddressMutation(d)
		return err
	}); err != nil {
		return nil, err
	}
	return res, nil
}
