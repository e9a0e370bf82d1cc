package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDetails() Details {
	return Details{
		Name:          "Asha",
		Phone:         "+91 9876543210",
		Address:       "12 MG Road, Kamla Nagar",
		PaymentMethod: PaymentCash,
	}
}

func TestValidate_OK(t *testing.T) {
	require.NoError(t, Validate(validDetails()))
}

func TestValidate_PhoneFormatNotChecked(t *testing.T) {
	d := validDetails()
	d.Phone = "call me"
	require.NoError(t, Validate(d))
}

func TestValidate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Details)
		want   []string
	}{
		{
			name:   "name",
			mutate: func(d *Details) { d.Name = "" },
			want:   []string{"name"},
		},
		{
			name:   "phone",
			mutate: func(d *Details) { d.Phone = "" },
			want:   []string{"phone"},
		},
		{
			name:   "address",
			mutate: func(d *Details) { d.Address = "" },
			want:   []string{"address"},
		},
		{
			name: "all three",
			mutate: func(d *Details) {
				d.Name, d.Phone, d.Address = "", "", ""
			},
			want: []string{"name", "phone", "address"},
		},
		{
			name:   "unknown payment method",
			mutate: func(d *Details) { d.PaymentMethod = "cheque" },
			want:   []string{"paymentMethod"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			tt.mutate(&d)

			err := Validate(d)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.want, ve.Fields)
			for _, f := range tt.want {
				assert.True(t, ve.Has(f))
			}
		})
	}
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in   string
		want PaymentMethod
		ok   bool
	}{
		{"", PaymentCash, true},
		{"cash", PaymentCash, true},
		{"COD", PaymentCash, true},
		{"online", PaymentUPI, true},
		{"upi", PaymentUPI, true},
		{"card", PaymentCard, true},
		{"bitcoin", PaymentMethod("bitcoin"), false},
	}
	for _, tt := range tests {
		got, ok := ParsePaymentMethod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
