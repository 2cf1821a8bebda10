package donation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() DonationForm {
	return DonationForm{
		Amount:         "25.00",
		PaymentMethod:  "especes",
		TourneeID:      uuid.NewString(),
		SupporterName:  "Jean Dupont",
		SupporterEmail: "a@b.com",
	}
}

func TestDonationForm_Validate(t *testing.T) {
	t.Run("accepts a fiscal donation with email", func(t *testing.T) {
		v, errs := validForm().Validate()
		require.Empty(t, errs)
		assert.True(t, decimal.NewFromInt(25).Equal(v.Amount))
		assert.Equal(t, PaymentMethodCash, v.PaymentMethod)
		assert.Equal(t, "Jean", v.Supporter.FirstName)
		assert.Equal(t, "Dupont", v.Supporter.LastName)
	})

	t.Run("accepts comma decimal separator", func(t *testing.T) {
		f := validForm()
		f.Amount = "12,50"
		v, errs := f.Validate()
		require.Empty(t, errs)
		assert.Equal(t, "12.5", v.Amount.String())
	})

	t.Run("rejects amounts outside (0, 10000]", func(t *testing.T) {
		for _, amount := range []string{"0", "-5", "0,004", "10000.01", "10000.005", "50000"} {
			f := validForm()
			f.Amount = amount
			v, errs := f.Validate()
			assert.Nil(t, v, amount)
			assert.Equal(t, []string{MsgAmountOutOfRange}, errs, amount)
		}
	})

	t.Run("accepts the upper bound", func(t *testing.T) {
		f := validForm()
		f.Amount = "10000"
		_, errs := f.Validate()
		assert.Empty(t, errs)
	})

	t.Run("fiscal donation requires an email", func(t *testing.T) {
		f := validForm()
		f.SupporterEmail = ""
		_, errs := f.Validate()
		assert.Equal(t, []string{MsgEmailRequiredFisc}, errs)
	})

	t.Run("fiscal donation requires a well formed email", func(t *testing.T) {
		f := validForm()
		f.SupporterEmail = "not-an-email"
		_, errs := f.Validate()
		assert.Equal(t, []string{MsgEmailInvalid}, errs)
	})

	t.Run("calendar donation does not need an email", func(t *testing.T) {
		f := validForm()
		f.CalendarAccepted = true
		f.SupporterEmail = ""
		_, errs := f.Validate()
		assert.Empty(t, errs)
	})

	t.Run("collects every error in order", func(t *testing.T) {
		f := DonationForm{Amount: "abc", PaymentMethod: "bitcoin"}
		_, errs := f.Validate()
		assert.Equal(t, []string{
			MsgAmountNotNumeric,
			MsgTourneeRequired,
			MsgPaymentMethod,
			MsgEmailRequiredFisc,
		}, errs)
	})
}

func TestParseAmount(t *testing.T) {
	tests := map[string]string{
		"12,50":       "12.5",
		"12.50":       "12.5",
		" 1 234,50 €": "1234.5",
		"1.234,50":    "1234.5",
		"1,234.50":    "1234.5",
		"40€":         "40",
	}
	for in, want := range tests {
		got, err := ParseAmount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.String(), in)
	}

	_, err := ParseAmount("")
	assert.Error(t, err)
	_, err = ParseAmount("douze")
	assert.Error(t, err)
}

func TestClosureForm_Validate(t *testing.T) {
	decl, errs := ClosureForm{Cash: "120,50 €", Check: "", CalendarsDistributed: 14, Notes: " rue des Lilas "}.Validate()
	require.Empty(t, errs)
	assert.Equal(t, "120.5", decl.Cash.String())
	assert.True(t, decl.Check.IsZero())
	assert.Equal(t, 14, decl.CalendarsDistributed)
	assert.Equal(t, "rue des Lilas", decl.Notes)

	_, errs = ClosureForm{Cash: "beaucoup", Check: "-3", CalendarsDistributed: -1}.Validate()
	assert.Len(t, errs, 3)
}
