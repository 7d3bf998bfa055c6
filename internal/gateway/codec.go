package gateway

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

// decodeCart reads the storefront cart payload.
func decodeCart(d *jx.Decoder) (*cart.Cart, error) {
	var c cart.Cart
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return strInto(d, &c.ID)
		case "lines":
			return d.Arr(func(d *jx.Decoder) error {
				l, err := decodeLine(d)
				if err != nil {
					return err
				}
				c.Lines = append(c.Lines, l)
				return nil
			})
		case "cost":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "subtotal":
					return strInto(d, &c.Cost.Subtotal)
				case "discount":
					return strInto(d, &c.Cost.Discount)
				case "total":
					return strInto(d, &c.Cost.Total)
				case "currency":
					return strInto(d, &c.Cost.Currency)
				default:
					return d.Skip()
				}
			})
		case "appliedCoupons":
			return d.Arr(func(d *jx.Decoder) error {
				var ac cart.AppliedCoupon
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					switch key {
					case "code":
						return strInto(d, &ac.Code)
					case "amount":
						return strInto(d, &ac.Amount)
					default:
						return d.Skip()
					}
				}); err != nil {
					return err
				}
				c.AppliedCoupons = append(c.AppliedCoupons, ac)
				return nil
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeLine(d *jx.Decoder) (cart.Line, error) {
	var l cart.Line
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "merchandiseId":
			return strInto(d, &l.MerchandiseID)
		case "quantity":
			n, err := d.Int()
			if err != nil {
				return err
			}
			l.Quantity = n
			return nil
		case "unitPrice":
			return strInto(d, &l.UnitPrice)
		case "total":
			return strInto(d, &l.Total)
		default:
			return d.Skip()
		}
	})
	return l, err
}

// decodeCoupon reads a wallet coupon payload. Timestamps are RFC 3339.
func decodeCoupon(d *jx.Decoder) (*coupon.Coupon, error) {
	var c coupon.Coupon
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "code":
			return strInto(d, &c.Code)
		case "type":
			s, err := d.Str()
			if err != nil {
				return err
			}
			c.Type = coupon.DiscountType(s)
			return nil
		case "value":
			return decimalInto(d, &c.Value)
		case "minSubtotal":
			return decimalInto(d, &c.MinSubtotal)
		case "startsAt":
			return timeInto(d, &c.StartsAt)
		case "expiresAt":
			return timeInto(d, &c.ExpiresAt)
		case "description":
			return strInto(d, &c.Description)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeAddress(d *jx.Decoder) (address.Address, error) {
	var a address.Address
	err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "id":
			return strInto(d, &a.ID)
		case "name":
			return strInto(d, &a.Name)
		case "phone":
			return strInto(d, &a.Phone)
		case "province":
			return strInto(d, &a.Province)
		case "city":
			return strInto(d, &a.City)
		case "district":
			return strInto(d, &a.District)
		case "detail":
			return strInto(d, &a.Detail)
		case "default":
			v, err := d.Bool()
			if err != nil {
				return err
			}
			a.Default = v
			return nil
		default:
			return d.Skip()
		}
	})
	return a, err
}

// decodeAddressMutation reads {addresses: [...], added|defaultAddress: {...}}.
func decodeAddressMutation(d *jx.Decoder) (*address.MutationResult, error) {
	var res address.MutationResult
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "addresses":
			return d.Arr(func(d *jx.Decoder) error {
				a, err := decodeAddress(d)
				if err != nil {
					return err
				}
				res.Addresses = append(res.Addresses, a)
				return nil
			})
		case "added", "defaultAddress":
			a, err := decodeAddress(d)
			if err != nil {
				return err
			}
			res.Touched = &a
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &res, nil
}

func decodeConfirmation(d *jx.Decoder) (*payment.Confirmation, error) {
	var conf payment.Confirmation
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "orderId":
			return strInto(d, &conf.OrderID)
		case "resultUrl":
			return strInto(d, &conf.ResultURL)
		case "paidAmount":
			return decimalInto(d, &conf.PaidAmount)
		case "currency":
			return strInto(d, &conf.Currency)
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, err
	}
	return &conf, nil
}

func encodeAddressInput(e *jx.Encoder, in address.Input) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(in.Name)
	e.FieldStart("phone")
	e.Str(in.Phone)
	e.FieldStart("province")
	e.Str(in.Province)
	e.FieldStart("city")
	e.Str(in.City)
	e.FieldStart("district")
	e.Str(in.District)
	e.FieldStart("detail")
	e.Str(in.Detail)
	e.FieldStart("default")
	e.Bool(in.Default)
	e.ObjEnd()
}

func encodeConfirmRequest(e *jx.Encoder, req payment.ConfirmRequest) {
	e.ObjStart()
	e.FieldStart("customerId")
	e.Str(req.CustomerID)
	e.FieldStart("addressId")
	e.Str(req.AddressID)
	e.FieldStart("shippingMethodId")
	e.Str(req.ShippingMethodID)
	e.FieldStart("paymentMethodId")
	e.Str(req.PaymentMethodID)
	e.FieldStart("payable")
	e.Str(req.Payable.String())
	e.FieldStart("currency")
	e.Str(req.Currency)
	e.FieldStart("pointsApplied")
	e.Int64(req.PointsApplied)
	e.FieldStart("idempotencyKey")
	e.Str(req.IdempotencyKey)
	e.FieldStart("device")
	e.ObjStart()
	e.FieldStart("platform")
	e.Str(req.Device.Platform)
	e.FieldStart("userAgent")
	e.Str(req.Device.UserAgent)
	e.FieldStart("remoteIp")
	e.Str(req.Device.RemoteIP)
	e.ObjEnd()
	e.ObjEnd()
}

func strInto(d *jx.Decoder, dst *string) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = s
	return nil
}

// decimalInto parses a string-encoded amount, coercing malformed values to
// zero like the rest of the money pipeline.
func decimalInto(d *jx.Decoder, dst *decimal.Decimal) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	*dst = cart.ParseAmount(s)
	return nil
}

func timeInto(d *jx.Decoder, dst **time.Time) error {
	if d.Next() == jx.Null {
		return d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*dst = &t
	return nil
}
