package voucher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDetails() Details {
	return Details{
		Payee:         "Acme Supplies Ltd",
		VoucherNumber: "VN-2026-0042",
		Particular:    "Office furniture supply",
		Category:      "Goods",
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		GrossAmount:   decimal.NewFromInt(100000),
		VAT:           decimal.NewFromInt(5000),
		WHT:           decimal.NewFromInt(3000),
		StampDuty:     decimal.NewFromInt(500),
	}
}

func TestNew(t *testing.T) {
	t.Run("creates unpaid voucher with derived net", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NotNil(t, v)

		assert.Equal(t, StatusUnpaid, v.Status)
		assert.Equal(t, "2026", v.Year)
		assert.Equal(t, int64(0), v.RowIndex)
		assert.False(t, v.PendingDeletion)
		assert.True(t, decimal.NewFromInt(91500).Equal(v.Net))
		assert.Equal(t, PaymentLumpsum, v.PaymentType)
		assert.Equal(t, 1, v.Version)
	})

	t.Run("publishes created event", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		events := v.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "VoucherCreated", events[0].EventType())
	})

	t.Run("rejects unknown year partition", func(t *testing.T) {
		_, err := New("2019", validDetails())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown year")
	})

	t.Run("rejects empty payee", func(t *testing.T) {
		d := validDetails()
		d.Payee = "  "
		_, err := New("2026", d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Payee")
	})

	t.Run("rejects non-positive gross", func(t *testing.T) {
		d := validDetails()
		d.GrossAmount = decimal.Zero
		_, err := New("2026", d)
		require.Error(t, err)
	})

	t.Run("rejects negative deductions", func(t *testing.T) {
		d := validDetails()
		d.WHT = decimal.NewFromInt(-1)
		_, err := New("2026", d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Deductions")
	})

	t.Run("net can go negative when deductions exceed gross", func(t *testing.T) {
		d := validDetails()
		d.GrossAmount = decimal.NewFromInt(1000)
		d.VAT = decimal.NewFromInt(900)
		d.WHT = decimal.NewFromInt(200)
		d.StampDuty = decimal.Zero
		v, err := New("2026", d)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(-100).Equal(v.Net))
	})

	t.Run("first part-payment requires contract sum and prefix", func(t *testing.T) {
		d := validDetails()
		d.PaymentType = PaymentFirstPart
		d.Particular = "First part-payment for road rehabilitation"
		_, err := New("2026", d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Contract sum")

		d.ContractSum = decimal.NewFromInt(500000)
		v, err := New("2026", d)
		require.NoError(t, err)
		assert.Equal(t, PaymentFirstPart, v.PaymentType)

		d.Particular = "Road rehabilitation works"
		_, err = New("2026", d)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "prefix")
	})
}

func TestVoucher_UpdateDetails(t *testing.T) {
	t.Run("recomputes net and bumps version", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		d := validDetails()
		d.GrossAmount = decimal.NewFromInt(200000)
		d.VAT = decimal.NewFromInt(10000)
		d.WHT = decimal.Zero
		d.StampDuty = decimal.Zero
		require.NoError(t, v.UpdateDetails(d))

		assert.True(t, decimal.NewFromInt(190000).Equal(v.Net))
		assert.Equal(t, 2, v.Version)
	})

	t.Run("blocked while pending deletion", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.RequestDeletion("duplicate entry", "staff@fmca.gov"))

		err = v.UpdateDetails(validDetails())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pending deletion")
	})
}

func TestVoucher_ChangeStatus(t *testing.T) {
	t.Run("marks paid with payment month", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		require.NoError(t, v.ChangeStatus(StatusPaid, "March"))
		assert.Equal(t, StatusPaid, v.Status)
		assert.Equal(t, "March", v.PmtMonth)
	})

	t.Run("paid without any payment month is rejected", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		err = v.ChangeStatus(StatusPaid, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Payment month")
	})

	t.Run("paid reuses previously recorded month", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		v.PmtMonth = "February"

		require.NoError(t, v.ChangeStatus(StatusPaid, ""))
		assert.Equal(t, "February", v.PmtMonth)
	})

	t.Run("rejects invalid month name", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		err = v.ChangeStatus(StatusPaid, "Marchtober")
		require.Error(t, err)
	})

	t.Run("blocked while pending deletion", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.RequestDeletion("entered twice", "staff@fmca.gov"))

		err = v.ChangeStatus(StatusCancelled, "")
		require.Error(t, err)
	})

	t.Run("reversal to unpaid is a plain transition", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.ChangeStatus(StatusPaid, "April"))
		require.NoError(t, v.ChangeStatus(StatusUnpaid, ""))
		assert.Equal(t, StatusUnpaid, v.Status)
	})
}

func TestVoucher_DeletionOverlay(t *testing.T) {
	for _, start := range []BaseStatus{StatusUnpaid, StatusPaid, StatusCancelled} {
		t.Run("round-trips from "+string(start), func(t *testing.T) {
			v, err := New("2026", validDetails())
			require.NoError(t, err)
			if start == StatusPaid {
				require.NoError(t, v.ChangeStatus(start, "June"))
			} else if start != StatusUnpaid {
				require.NoError(t, v.ChangeStatus(start, ""))
			}

			require.NoError(t, v.RequestDeletion("wrong payee", "staff@fmca.gov"))
			assert.True(t, v.PendingDeletion)
			assert.Equal(t, StatusPendingDeletion, v.DisplayStatus())
			require.NotNil(t, v.PreviousStatus)
			assert.Equal(t, start, *v.PreviousStatus)

			require.NoError(t, v.ResolveDeletion("not a duplicate after all"))
			assert.False(t, v.PendingDeletion)
			assert.Equal(t, start, v.Status)
			assert.Equal(t, string(start), v.DisplayStatus())
			assert.Nil(t, v.PreviousStatus)
			assert.Empty(t, v.DeleteReason)
			assert.Empty(t, v.DeleteRequestedBy)
		})
	}

	t.Run("second request while pending is rejected", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.RequestDeletion("dup", "a@fmca.gov"))

		err = v.RequestDeletion("dup again", "b@fmca.gov")
		require.Error(t, err)
	})

	t.Run("request without reason is rejected", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		err = v.RequestDeletion("   ", "a@fmca.gov")
		require.Error(t, err)
	})

	t.Run("resolve without pending request is rejected", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		err = v.ResolveDeletion("nothing to resolve")
		require.Error(t, err)
	})

	t.Run("resolve fails closed when captured status is missing", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.RequestDeletion("dup", "a@fmca.gov"))
		v.PreviousStatus = nil

		err = v.ResolveDeletion("restore")
		require.Error(t, err)
		assert.True(t, v.PendingDeletion)
	})
}

func TestVoucher_AssignControlNumber(t *testing.T) {
	t.Run("releases to a target unit", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		require.NoError(t, v.AssignControlNumber("CN-0007", "Checking Unit"))
		assert.True(t, v.IsReleased())
		assert.Equal(t, "CN-0007", v.ControlNumber)
		assert.Equal(t, "Checking Unit", v.ReleasedTo)
		require.NotNil(t, v.ReleasedAt)
	})

	t.Run("release is monotonic", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.AssignControlNumber("CN-0007", "Checking Unit"))

		err = v.AssignControlNumber("CN-0008", "Checking Unit")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already released")
		assert.Equal(t, "CN-0007", v.ControlNumber)
	})

	t.Run("rejects blank control number or unit", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		require.Error(t, v.AssignControlNumber(" ", "Checking Unit"))
		require.Error(t, v.AssignControlNumber("CN-0001", " "))
	})
}

func TestVoucher_Forward(t *testing.T) {
	t.Run("forwards released voucher keeping its control number", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.AssignControlNumber("CN-0003", "Checking Unit"))

		require.NoError(t, v.Forward("Cash Office", "payment processing"))
		assert.Equal(t, "CN-0003", v.ControlNumber)
		assert.Equal(t, "Cash Office", v.ReleasedTo)
	})

	t.Run("unreleased voucher cannot be forwarded", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)

		err = v.Forward("Cash Office", "payment processing")
		require.Error(t, err)
	})

	t.Run("purpose is required", func(t *testing.T) {
		v, err := New("2026", validDetails())
		require.NoError(t, err)
		require.NoError(t, v.AssignControlNumber("CN-0003", "Checking Unit"))

		err = v.Forward("Cash Office", "  ")
		require.Error(t, err)
	})
}

func TestPaymentType_MatchesParticular(t *testing.T) {
	cases := []struct {
		payment    PaymentType
		particular string
		want       bool
	}{
		{PaymentLumpsum, "Supply of stationery", true},
		{PaymentFirstPart, "First part-payment for borehole drilling", true},
		{PaymentFirstPart, "1st part pmt for borehole drilling", true},
		{PaymentFirstPart, "Borehole drilling", false},
		{PaymentBalance, "Balance payment for borehole drilling", true},
		{PaymentBalance, "Final pmt for borehole drilling", true},
		{PaymentBalance, "Borehole drilling balance", false},
		{PaymentOtherPart, "2nd part-payment for borehole drilling", true},
		{PaymentOtherPart, "Third part payment for borehole drilling", true},
		{PaymentOtherPart, "Part payment for borehole drilling", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.payment)+"/"+tc.particular, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.payment.MatchesParticular(tc.particular))
		})
	}
}

func TestDetectPaymentType(t *testing.T) {
	assert.Equal(t, PaymentFirstPart, DetectPaymentType("1st Part-Payment for fencing"))
	assert.Equal(t, PaymentBalance, DetectPaymentType("FNL PMT for fencing"))
	assert.Equal(t, PaymentOtherPart, DetectPaymentType("Second part payment for fencing"))
	assert.Equal(t, PaymentLumpsum, DetectPaymentType("Fencing of premises"))
}
