// Package contact validates and delivers help center messages.
package contact

import (
	"context"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator"
)

// Form is a message submitted from the help center.
type Form struct {
	Name    string `json:"name" validate:"required,min=2,max=100,letters"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Phone   string `json:"phone" validate:"omitempty,len=10,digits"`
	Subject string `json:"subject" validate:"required,min=5,max=200"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

// Normalize trims surrounding whitespace from every field.
func (f *Form) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the rejected fields in form order.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("letters", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r != ' ' && !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z') {
				return false
			}
		}
		return true
	})
	_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return false
			}
		}
		return true
	})
	return v
}

var messages = map[string]map[string]string{
	"name": {
		"required": "Name must be at least 2 characters",
		"min":      "Name must be at least 2 characters",
		"max":      "Name must be less than 100 characters",
		"letters":  "Name can only contain letters and spaces",
	},
	"email": {
		"required": "Please enter a valid email address",
		"email":    "Please enter a valid email address",
		"max":      "Email must be less than 255 characters",
	},
	"phone": {
		"len":    "Phone number must be 10 digits",
		"digits": "Phone number must be 10 digits",
	},
	"subject": {
		"required": "Subject must be at least 5 characters",
		"min":      "Subject must be at least 5 characters",
		"max":      "Subject must be less than 200 characters",
	},
	"message": {
		"required": "Message must be at least 10 characters",
		"min":      "Message must be at least 10 characters",
		"max":      "Message must be less than 1000 characters",
	},
}

// Validate normalizes f and checks it. It returns a *ValidationError
// listing every rejected field.
func Validate(f *Form) error {
	f.Normalize()
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate contact form")
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		msg := messages[fe.Field()][fe.Tag()]
		if msg == "" {
			msg = "Invalid value"
		}
		ve.Errors = append(ve.Errors, FieldError{Field: fe.Field(), Message: msg})
	}
	return ve
}

// Message is a support email.
type Message struct {
	FromName  string
	ReplyTo   string
	Subject   string
	PlainText string
}

// Sender delivers support emails.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Service forwards valid forms to the support mailbox.
type Service struct {
	sender Sender
}

// NewService returns a Service delivering through sender.
func NewService(sender Sender) *Service {
	return &Service{sender: sender}
}

// Submit validates f and sends it.
func (s *Service) Submit(ctx context.Context, f Form) error {
	if err := Validate(&f); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("Name: " + f.Name + "\n")
	b.WriteString("Email: " + f.Email + "\n")
	if f.Phone != "" {
		b.WriteString("Phone: " + f.Phone + "\n")
	}
	b.WriteString("\n" + f.Message + "\n")

	err := s.sender.Send(ctx, Message{
		FromName:  f.Name,
		ReplyTo:   f.Email,
		Subject:   "[Help Center] " + f.Subject,
		PlainText: b.String(),
	})
	if err != nil {
		return errors.Wrap(err, "send contact message")
	}
	return nil
}
