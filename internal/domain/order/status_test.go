package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusConfirmed, StatusPreparing, true},
		{StatusPreparing, StatusOutForDelivery, true},
		{StatusOutForDelivery, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusOutForDelivery, StatusCancelled, true},

		{StatusPending, StatusPreparing, false},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusPending, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusPending, StatusPending, false},
		{StatusPending, Status("shipped"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := CheckTransition(tt.from, tt.to)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, tt.from, te.From)
			assert.Equal(t, tt.to, te.To)
		})
	}
}

func TestStatus_Terminal(t *testing.T) {
	for _, s := range Statuses() {
		want := s == StatusDelivered || s == StatusCancelled
		assert.Equal(t, want, s.Terminal(), s)
	}
}

func TestStatus_NextIsCopy(t *testing.T) {
	next := StatusPending.Next()
	next[0] = StatusDelivered
	assert.Equal(t, StatusConfirmed, StatusPending.Next()[0])
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"pending", StatusPending},
		{" Delivered ", StatusDelivered},
		{"out_for_delivery", StatusOutForDelivery},
		{"out-for-delivery", StatusOutForDelivery},
		{"on_the_way", StatusOutForDelivery},
		{"cancelled", StatusCancelled},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStatus("shipped")
	require.Error(t, err)
}
