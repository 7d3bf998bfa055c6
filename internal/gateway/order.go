package gateway

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

var _ payment.OrderService = (*Client)(nil)

// ConfirmAndNotify submits the payment confirmation. The idempotency key
// travels both in the body and in the Idempotency-Key header so either side
// of the order service can deduplicate retries.
func (c *Client) ConfirmAndNotify(ctx context.Context, cr payment.ConfirmRequest) (*payment.Confirmation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url("/orders/confirm"),
		jsonBody(func(e *jx.Encoder) {
			encodeConfirmRequest(e, cr)
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Idempotency-Key", cr.IdempotencyKey)

	var conf *payment.Confirmation
	if err := c.do(req, func(d *jx.Decoder) error {
		conf, err = decodeConfirmation(d)
		return err
	}); err != nil {
		return nil, err
	}

	c.lg.Info("order confirmed",
		zap.String("order_id", conf.OrderID),
		zap.String("idempotency_key", cr.IdempotencyKey),
	)
	return conf, nil
}
