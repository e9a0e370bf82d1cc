package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dream-snack/internal/chat"
	"github.com/xenking/dream-snack/internal/domain/auth"
	"github.com/xenking/dream-snack/internal/domain/catalog"
	"github.com/xenking/dream-snack/internal/domain/checkout"
	"github.com/xenking/dream-snack/internal/domain/contact"
	"github.com/xenking/dream-snack/internal/domain/order"
	"github.com/xenking/dream-snack/internal/domain/settings"
)

const maxBodyBytes = 64 << 10

// badRequest marks malformed input.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func newBadRequest(msg string) error { return &badRequest{msg: msg} }

// writeJSON writes the value produced by enc with the given status.
func writeJSON(w http.ResponseWriter, status int, enc func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	enc(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, code int, msg string, fields []string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(code)
		e.FieldStart("message")
		e.Str(msg)
		if len(fields) > 0 {
			e.FieldStart("fields")
			e.ArrStart()
			for _, f := range fields {
				e.Str(f)
			}
			e.ArrEnd()
		}
		e.ObjEnd()
	})
}

// fail maps err to an error response.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		checkoutErr   *checkout.ValidationError
		settingsErr   *settings.ValidationError
		contactErr    *contact.ValidationError
		transitionErr *order.TransitionError
		gatewayErr    *chat.GatewayError
		badReq        *badRequest
	)
	switch {
	case errors.As(err, &badReq):
		writeError(w, http.StatusBadRequest, badReq.msg, nil)
	case errors.As(err, &checkoutErr):
		writeError(w, http.StatusBadRequest, "Please fill in all required fields", checkoutErr.Fields)
	case errors.As(err, &settingsErr):
		writeError(w, http.StatusBadRequest, "Please fill all fields", settingsErr.Fields)
	case errors.As(err, &contactErr):
		fields := make([]string, len(contactErr.Errors))
		for i, fe := range contactErr.Errors {
			fields[i] = fe.Field
		}
		writeError(w, http.StatusBadRequest, contactErr.Error(), fields)
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "Your cart is empty", nil)
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, "Admin access required", nil)
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, settings.ErrAddressNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, transitionErr.Error(), nil)
	case errors.Is(err, order.ErrStatusConflict):
		writeError(w, http.StatusConflict, "Order status was changed by someone else, reload and retry", nil)
	case errors.Is(err, chat.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
	case errors.Is(err, chat.ErrQuotaExceeded):
		writeError(w, http.StatusPaymentRequired, "AI service unavailable. Please try again later.", nil)
	case errors.Is(err, chat.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Chat is not available", nil)
	case errors.As(err, &gatewayErr):
		zctx.From(r.Context()).Warn("Chat gateway error",
			zap.Int("status", gatewayErr.StatusCode),
			zap.String("body", gatewayErr.Body),
		)
		writeError(w, http.StatusBadGateway, "AI gateway error", nil)
	default:
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// decodeBody decodes a JSON object body, calling the decoder registered
// for each known key. Unknown keys are skipped.
func decodeBody(r *http.Request, fields map[string]func(d *jx.Decoder) error) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return errors.Wrap(err, "read body")
	}
	if len(data) > maxBodyBytes {
		return newBadRequest("Request body too large")
	}
	if len(data) == 0 {
		return newBadRequest("Request body is required")
	}
	err = jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if fn, ok := fields[key]; ok {
			return fn(d)
		}
		return d.Skip()
	})
	if err != nil {
		return newBadRequest("Invalid JSON body: " + err.Error())
	}
	return nil
}

func str(p *string) func(d *jx.Decoder) error {
	return func(d *jx.Decoder) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		v, err := d.Str()
		*p = v
		return err
	}
}

func integer(p *int) func(d *jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v, err := d.Int()
		*p = v
		return err
	}
}

func boolean(p *bool) func(d *jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v, err := d.Bool()
		*p = v
		return err
	}
}

// pathID parses a numeric path value.
func pathID(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, newBadRequest("Invalid " + name)
	}
	return v, nil
}
