// Package settings stores per-user preferences in typed, versioned
// sections.
package settings

import (
	"context"
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator"

	"github.com/xenking/dream-snack/internal/kv"
)

// Section names one independently stored group of preferences.
type Section string

const (
	SectionTheme         Section = "theme"
	SectionNotifications Section = "notifications"
	SectionPrivacy       Section = "privacy"
	SectionAddresses     Section = "addresses"
)

const keyPrefix = "settings/v1/"

// Key returns the storage key of a section owned by userID.
func Key(userID string, s Section) string {
	return keyPrefix + userID + "/" + string(s)
}

// Theme holds appearance preferences.
type Theme struct {
	Theme    string `json:"theme" validate:"oneof=light dark system"`
	Language string `json:"language" validate:"oneof=en hi es fr de zh ja"`
}

// Notifications holds the notification channel toggles.
type Notifications struct {
	EmailOrders     bool `json:"emailOrders"`
	EmailPromotions bool `json:"emailPromotions"`
	PushOrders      bool `json:"pushOrders"`
	PushDelivery    bool `json:"pushDelivery"`
	SMSOrders       bool `json:"smsOrders"`
	SMSDelivery     bool `json:"smsDelivery"`
}

// Privacy holds data sharing preferences.
type Privacy struct {
	ShareData    bool `json:"shareData"`
	Analytics    bool `json:"analytics"`
	Marketing    bool `json:"marketing"`
	OrderHistory bool `json:"orderHistory"`
}

// DefaultTheme follows the system appearance in English.
func DefaultTheme() Theme {
	return Theme{Theme: "system", Language: "en"}
}

// DefaultNotifications enables order emails and push updates only.
func DefaultNotifications() Notifications {
	return Notifications{EmailOrders: true, PushOrders: true, PushDelivery: true}
}

// DefaultPrivacy enables analytics and order history only.
func DefaultPrivacy() Privacy {
	return Privacy{Analytics: true, OrderHistory: true}
}

// Preferences is every section of one user.
type Preferences struct {
	Theme         Theme         `json:"theme"`
	Notifications Notifications `json:"notifications"`
	Privacy       Privacy       `json:"privacy"`
	Addresses     []Address     `json:"addresses"`
}

// ValidationError names the fields rejected by a section update.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	return v
}()

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate")
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		ve.Fields = append(ve.Fields, fe.Field())
	}
	return ve
}

// Store reads and writes preference sections. A section that was never
// written reads as its defaults; a write replaces the whole section.
type Store struct {
	kv  kv.Storage
	ids func() string
}

// NewStore returns a Store over s. ids generates address ids.
func NewStore(s kv.Storage, ids func() string) *Store {
	return &Store{kv: s, ids: ids}
}

func (s *Store) load(ctx context.Context, userID string, sec Section, v any) (bool, error) {
	data, err := s.kv.Get(ctx, Key(userID, sec))
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get %s", sec)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decode %s", sec)
	}
	return true, nil
}

func (s *Store) save(ctx context.Context, userID string, sec Section, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", sec)
	}
	if err := s.kv.Set(ctx, Key(userID, sec), data); err != nil {
		return errors.Wrapf(err, "set %s", sec)
	}
	return nil
}

// Theme returns the appearance preferences of userID.
func (s *Store) Theme(ctx context.Context, userID string) (Theme, error) {
	t := DefaultTheme()
	if _, err := s.load(ctx, userID, SectionTheme, &t); err != nil {
		return Theme{}, err
	}
	return t, nil
}

// SetTheme replaces the appearance preferences of userID.
func (s *Store) SetTheme(ctx context.Context, userID string, t Theme) error {
	if err := check(t); err != nil {
		return err
	}
	return s.save(ctx, userID, SectionTheme, t)
}

// Notifications returns the notification toggles of userID.
func (s *Store) Notifications(ctx context.Context, userID string) (Notifications, error) {
	n := DefaultNotifications()
	if _, err := s.load(ctx, userID, SectionNotifications, &n); err != nil {
		return Notifications{}, err
	}
	return n, nil
}

// SetNotifications replaces the notification toggles of userID.
func (s *Store) SetNotifications(ctx context.Context, userID string, n Notifications) error {
	return s.save(ctx, userID, SectionNotifications, n)
}

// Privacy returns the privacy preferences of userID.
func (s *Store) Privacy(ctx context.Context, userID string) (Privacy, error) {
	p := DefaultPrivacy()
	if _, err := s.load(ctx, userID, SectionPrivacy, &p); err != nil {
		return Privacy{}, err
	}
	return p, nil
}

// SetPrivacy replaces the privacy preferences of userID.
func (s *Store) SetPrivacy(ctx context.Context, userID string, p Privacy) error {
	return s.save(ctx, userID, SectionPrivacy, p)
}

// Preferences returns every section of userID.
func (s *Store) Preferences(ctx context.Context, userID string) (*Preferences, error) {
	var (
		p   Preferences
		err error
	)
	if p.Theme, err = s.Theme(ctx, userID); err != nil {
		return nil, err
	}
	if p.Notifications, err = s.Notifications(ctx, userID); err != nil {
		return nil, err
	}
	if p.Privacy, err = s.Privacy(ctx, userID); err != nil {
		return nil, err
	}
	if p.Addresses, err = s.Addresses(ctx, userID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ClearLocalData resets notifications, privacy and the address book.
// Appearance preferences are kept.
func (s *Store) ClearLocalData(ctx context.Context, userID string) error {
	err := s.kv.Delete(ctx,
		Key(userID, SectionNotifications),
		Key(userID, SectionPrivacy),
		Key(userID, SectionAddresses),
	)
	if err != nil {
		return errors.Wrap(err, "clear preferences")
	}
	return nil
}
