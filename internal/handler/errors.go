package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/ogen-go/ogen/validate"
	"go.uber.org/zap"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
)

// malformedBodyError is a request body that is not a JSON object.
type malformedBodyError struct {
	err error
}

func (e *malformedBodyError) Error() string { return "Invalid JSON body" }

func (e *malformedBodyError) Unwrap() error { return e.err }

// problem is the normalized form of a handler error.
type problem struct {
	status int
	msg    string
	fields []validate.FieldError
}

// classify maps the domain error taxonomy onto HTTP statuses. Anything it
// does not recognize is a 500 whose details stay in the log.
func classify(err error) problem {
	var (
		badBody  *malformedBodyError
		invalid  *validate.Error
		denied   *auth.ForbiddenError
		noProd   *product.NotFoundError
		noVendor *user.VendorNotFoundError
		noOrder  *order.NotFoundError
		noItem   *cart.ItemNotFoundError
	)
	switch {
	case errors.As(err, &badBody):
		return problem{status: http.StatusBadRequest, msg: badBody.Error()}
	case errors.As(err, &invalid):
		msgs := make([]string, 0, len(invalid.Fields))
		for _, f := range invalid.Fields {
			msgs = append(msgs, f.Error.Error())
		}
		return problem{status: http.StatusBadRequest, msg: strings.Join(msgs, ", "), fields: invalid.Fields}
	case errors.Is(err, auth.ErrUnauthenticated):
		return problem{status: http.StatusUnauthorized, msg: "Not authorized to access this route"}
	case errors.As(err, &denied):
		return problem{status: http.StatusForbidden, msg: denied.Error()}
	case errors.As(err, &noProd):
		return problem{status: http.StatusNotFound, msg: noProd.Error()}
	case errors.As(err, &noVendor):
		return problem{status: http.StatusNotFound, msg: noVendor.Error()}
	case errors.As(err, &noOrder):
		return problem{status: http.StatusNotFound, msg: noOrder.Error()}
	case errors.As(err, &noItem):
		return problem{status: http.StatusNotFound, msg: noItem.Error()}
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound):
		return problem{status: http.StatusNotFound, msg: "Resource not found"}
	default:
		return problem{status: http.StatusInternalServerError, msg: "Server Error"}
	}
}

// fail writes the error envelope for err.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	p := classify(err)
	if p.status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeError(w, p)
}

func writeError(w http.ResponseWriter, p problem) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(false)
	e.FieldStart("error")
	e.Str(p.msg)
	if len(p.fields) > 0 {
		e.FieldStart("fields")
		e.ObjStart()
		for _, f := range p.fields {
			e.FieldStart(f.Name)
			e.Str(f.Error.Error())
		}
		e.ObjEnd()
	}
	e.ObjEnd()
	writeBody(w, p.status, e.Bytes())
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
