// Package checkout validates the delivery and payment details entered on
// the checkout form.
package checkout

import (
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator"
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentUPI  PaymentMethod = "upi"
	PaymentCard PaymentMethod = "card"
)

// ParsePaymentMethod maps form values, including the legacy "cod" and
// "online" labels, to a PaymentMethod. Empty input selects cash.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cash", "cod":
		return PaymentCash, true
	case "upi", "online":
		return PaymentUPI, true
	case "card":
		return PaymentCard, true
	}
	return PaymentMethod(s), false
}

// Details are the fields submitted with an order.
type Details struct {
	Name                string        `json:"name" validate:"required"`
	Phone               string        `json:"phone" validate:"required"`
	Address             string        `json:"address" validate:"required"`
	PaymentMethod       PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash upi card"`
	SpecialInstructions string        `json:"specialInstructions"`
}

// ValidationError lists the fields that failed validation, using their
// JSON names in form order.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// Has reports whether field is among the failed fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// Validate checks that name, phone and address are present and that the
// payment method is known. Only emptiness is checked; the phone number
// format is not.
func Validate(d Details) error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate checkout")
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}
