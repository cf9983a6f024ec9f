package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// decodeCheckout reads {shippingAddress{...}, paymentInfo{method, transactionId}}.
// Missing address parts are left empty for order validation to report.
func decodeCheckout(w http.ResponseWriter, r *http.Request) (order.CheckoutInput, error) {
	var (
		in order.CheckoutInput
		b  verr.Builder
	)
	str := func(d *jx.Decoder, field string, dst *string) error {
		s, err := readString(d, &b, field)
		if s != nil {
			*dst = *s
		}
		return err
	}
	nested := func(d *jx.Decoder, prefix string, fn func(d *jx.Decoder, key, field string) error) error {
		if d.Next() != jx.Object {
			b.Add(prefix, prefix+" must be an object")
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			return fn(d, key, prefix+"."+key)
		})
	}

	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "shippingAddress":
			a := &in.ShippingAddress
			return nested(d, key, func(d *jx.Decoder, key, field string) error {
				switch key {
				case "street":
					return str(d, field, &a.Street)
				case "city":
					return str(d, field, &a.City)
				case "state":
					return str(d, field, &a.State)
				case "zipCode":
					return str(d, field, &a.ZipCode)
				case "country":
					return str(d, field, &a.Country)
				default:
					return d.Skip()
				}
			})
		case "paymentInfo":
			return nested(d, key, func(d *jx.Decoder, key, field string) error {
				switch key {
				case "method":
					var m string
					err := str(d, field, &m)
					in.PaymentMethod = order.PaymentMethod(m)
					return err
				case "transactionId":
					return str(d, field, &in.TransactionID)
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return in, err
	}
	return in, b.Err()
}

func decodeOrderUpdate(w http.ResponseWriter, r *http.Request) (order.UpdateInput, error) {
	var (
		in order.UpdateInput
		b  verr.Builder
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			s, err := readString(d, &b, key)
			if s != nil {
				st := order.Status(*s)
				in.Status = &st
			}
			return err
		case "paymentStatus":
			s, err := readString(d, &b, key)
			if s != nil {
				ps := order.PaymentStatus(*s)
				in.PaymentStatus = &ps
			}
			return err
		case "transactionId":
			var err error
			in.TransactionID, err = readString(d, &b, key)
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return in, err
	}
	return in, b.Err()
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	in, err := decodeCheckout(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Checkout(r.Context(), who, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	v := r.URL.Query()
	page, err := h.orders.List(r.Context(), who, positiveInt(v.Get("page")), positiveInt(v.Get("limit")))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeList(w, len(page.Items), page.Total, page.Pagination, func(e *jx.Encoder) {
		for i := range page.Items {
			encodeOrder(e, &page.Items[i])
		}
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), who, r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	in, err := decodeOrderUpdate(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Update(r.Context(), who, r.PathValue("id"), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}
