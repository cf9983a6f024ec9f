package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

type cartItemBody struct {
	productID string
	quantity  int
}

func decodeCartItem(w http.ResponseWriter, r *http.Request, defaultQuantity int) (cartItemBody, error) {
	var (
		body = cartItemBody{quantity: defaultQuantity}
		b    verr.Builder
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		switch key {
		case "productId":
			s, err := readString(d, &b, key)
			if s != nil {
				body.productID = *s
			}
			return err
		case "quantity":
			n, err := readInt(d, &b, key)
			if n != nil {
				body.quantity = *n
			}
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return body, err
	}
	return body, b.Err()
}

// cartCall runs op for the authenticated caller and renders the resulting
// cart.
func (h *Handler) cartCall(w http.ResponseWriter, r *http.Request, op func(who auth.Identity) (*cart.Cart, error)) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := op(who)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		encodeCart(e, c)
	})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.cartCall(w, r, func(who auth.Identity) (*cart.Cart, error) {
		return h.carts.Get(r.Context(), who)
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	h.cartCall(w, r, func(who auth.Identity) (*cart.Cart, error) {
		body, err := decodeCartItem(w, r, 1)
		if err != nil {
			return nil, err
		}
		return h.carts.AddItem(r.Context(), who, body.productID, body.quantity)
	})
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	h.cartCall(w, r, func(who auth.Identity) (*cart.Cart, error) {
		body, err := decodeCartItem(w, r, 0)
		if err != nil {
			return nil, err
		}
		return h.carts.SetQuantity(r.Context(), who, r.PathValue("productId"), body.quantity)
	})
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	h.cartCall(w, r, func(who auth.Identity) (*cart.Cart, error) {
		return h.carts.RemoveItem(r.Context(), who, r.PathValue("productId"))
	})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.cartCall(w, r, func(who auth.Identity) (*cart.Cart, error) {
		return h.carts.Clear(r.Context(), who)
	})
}
