// Package gateway implements the remote storefront service boundary used by
// checkout: cart coupon operations, the address book, and order
// confirmation. All operations are fallible request/response calls; there
// is no wire protocol of our own.
package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"
)

// RemoteError is a failure payload from the storefront service. Its message
// is surfaced to the customer verbatim.
type RemoteError struct {
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("service error (code %d)", e.Code)
}

// genericFailure is used when a failure payload carries no message.
const genericFailure = "something went wrong, please try again"

// Client is an HTTP implementation of the storefront service boundary.
type Client struct {
	baseURL string
	http    *http.Client
	lg      *zap.Logger
}

// NewClient creates a Client for the service at baseURL.
func NewClient(baseURL string, lg *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		lg: lg.Named("gateway"),
	}
}

// do sends the request and decodes the response with decode on 2xx, or maps
// the failure payload to a *RemoteError otherwise.
func (c *Client) do(req *http.Request, decode func(d *jx.Decoder) error) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeRemoteError(resp.StatusCode, body)
	}
	if decode == nil {
		return nil
	}

	d := jx.DecodeBytes(body)
	if err := decode(d); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// decodeRemoteError extracts {code, message} from a failure body, falling
// back to a generic message when the body is not parseable.
func decodeRemoteError(status int, body []byte) error {
	re := &RemoteError{Code: status, Message: genericFailure}

	d := jx.DecodeBytes(body)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			n, err := d.Int()
			if err != nil {
				return err
			}
			re.Code = n
			return nil
		case "message":
			s, err := d.Str()
			if err != nil {
				return err
			}
			if s != "" {
				re.Message = s
			}
			return nil
		default:
			return d.Skip()
		}
	})
	return re
}

func (c *Client) url(format string, args ...any) string {
	return c.baseURL + fmt.Sprintf(format, args...)
}

func jsonBody(build func(e *jx.Encoder)) io.Reader {
	var e jx.Encoder
	build(&e)
	return bytes.NewReader(e.Bytes())
}
