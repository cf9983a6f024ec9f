package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := h.products.List(r.Context(), q)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeProductPage(w, page)
}

func (h *Handler) listVendorProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r.URL.Query())
	if err != nil {
		fail(w, r, err)
		return
	}
	page, err := h.products.ListByVendor(r.Context(), r.PathValue("vendorId"), q)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeProductPage(w, page)
}

func writeProductPage(w http.ResponseWriter, page *product.Page) {
	writeList(w, len(page.Items), page.Total, page.Pagination, func(e *jx.Encoder) {
		for i := range page.Items {
			encodeProduct(e, &page.Items[i], nil)
		}
	})
}

// getProduct returns the product with its vendor's name and email joined in.
// A dangling vendor reference renders without the vendor object.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.products.Get(ctx, r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}

	var vendor *user.Summary
	if p.VendorID != "" {
		u, err := h.users.GetByID(ctx, p.VendorID)
		switch {
		case err == nil:
			s := u.Summary()
			vendor = &s
		case errors.Is(err, user.ErrNotFound):
			zctx.From(ctx).Debug("Product vendor missing",
				zap.String("product_id", p.ID),
				zap.String("vendor_id", p.VendorID),
			)
		default:
			fail(w, r, errors.Wrap(err, "load vendor"))
			return
		}
	}

	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, p, vendor)
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	// Role before body: a customer gets 403 even for a malformed product.
	if err := auth.CanCreate(who, "create products"); err != nil {
		fail(w, r, err)
		return
	}
	in, err := decodeProductInput(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.products.Create(r.Context(), who, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeProduct(e, p, nil)
	})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who, err := auth.Require(ctx)
	if err != nil {
		fail(w, r, err)
		return
	}
	id := r.PathValue("id")

	in, err := decodeProductInput(w, r)
	if err != nil {
		// Body errors rank below not-found and forbidden.
		existing, getErr := h.products.Get(ctx, id)
		if getErr != nil {
			fail(w, r, getErr)
			return
		}
		if authErr := auth.CanMutate(who, existing.VendorID, "update this product"); authErr != nil {
			fail(w, r, authErr)
			return
		}
		fail(w, r, err)
		return
	}

	p, err := h.products.Update(ctx, who, id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		encodeProduct(e, p, nil)
	})
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	who, err := auth.Require(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.products.Delete(r.Context(), who, r.PathValue("id")); err != nil {
		fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.ObjEnd()
	})
}
