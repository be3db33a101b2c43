package voucher

import (
	"context"
	"testing"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/identity"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	staffActor = identity.Actor{Email: "staff@fmca.gov", Role: identity.RolePayableStaff}
	headActor  = identity.Actor{Email: "head@fmca.gov", Role: identity.RolePayableHead}
	cpoActor   = identity.Actor{Email: "cpo@fmca.gov", Role: identity.RoleCPO}
	auditActor = identity.Actor{Email: "audit@fmca.gov", Role: identity.RoleAudit}
	adminActor = identity.Actor{Email: "admin@fmca.gov", Role: identity.RoleAdmin}
)

func seedVoucher(t *testing.T, repo *mockVoucherRepository, year, number string) *voucher.Voucher {
	t.Helper()
	v, err := voucher.New(year, voucher.Details{
		Payee:         "Acme Supplies Ltd",
		VoucherNumber: number,
		Particular:    "Supply of stationery",
		Date:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		GrossAmount:   decimal.NewFromInt(50000),
		VAT:           decimal.NewFromInt(2500),
	})
	require.NoError(t, err)
	repo.add(v)
	return v
}

func newReleaseFixture() (*ReleaseService, *mockVoucherRepository, *mockControlNumberRepository, *mockSink) {
	repo := newMockVoucherRepository()
	cnRepo := newMockControlNumberRepository()
	sink := &mockSink{}
	alloc := NewControlNumberAllocator(cnRepo, noopLock{}, "")
	svc := NewReleaseService(repo, alloc, sink, zap.NewNop(), "2026")
	return svc, repo, cnRepo, sink
}

func TestReleaseService_ReleaseVouchers(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns a fresh control number without touching status", func(t *testing.T) {
		svc, repo, _, sink := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")

		result, err := svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex, b.RowIndex}, "Checking Unit", "")
		require.NoError(t, err)
		assert.Equal(t, "CN-0001", result.ControlNumber)
		assert.Equal(t, 2, result.ReleasedCount)
		assert.Empty(t, result.Failures)

		stored, err := repo.FindByRowIndex(ctx, "2026", a.RowIndex)
		require.NoError(t, err)
		assert.Equal(t, "CN-0001", stored.ControlNumber)
		assert.Equal(t, "Checking Unit", stored.ReleasedTo)
		assert.Equal(t, voucher.StatusUnpaid, stored.Status)

		assert.Len(t, sink.byAction("releaseVouchers"), 3) // two rows + summary
	})

	t.Run("sequence advances per target unit", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")
		c := seedVoucher(t, repo, "2026", "VN-003")

		r1, err := svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex}, "Checking Unit", "")
		require.NoError(t, err)
		r2, err := svc.ReleaseVouchers(ctx, staffActor, []int64{b.RowIndex}, "Checking Unit", "")
		require.NoError(t, err)
		r3, err := svc.ReleaseVouchers(ctx, staffActor, []int64{c.RowIndex}, "Cash Office", "")
		require.NoError(t, err)

		assert.Equal(t, "CN-0001", r1.ControlNumber)
		assert.Equal(t, "CN-0002", r2.ControlNumber)
		assert.Equal(t, "CN-0001", r3.ControlNumber)
	})

	t.Run("already released rows fail individually", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")

		_, err := svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex}, "Checking Unit", "")
		require.NoError(t, err)

		result, err := svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex, b.RowIndex}, "Checking Unit", "")
		require.NoError(t, err)
		assert.Equal(t, 1, result.ReleasedCount)
		require.Len(t, result.Failures, 1)
		assert.Equal(t, a.RowIndex, result.Failures[0].RowIndex)
		assert.Contains(t, result.Failures[0].Error, "already released")
	})

	t.Run("a supplied control number is honored and reserved", func(t *testing.T) {
		svc, repo, cnRepo, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")

		result, err := svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex}, "Checking Unit", "CN-0007")
		require.NoError(t, err)
		assert.Equal(t, "CN-0007", result.ControlNumber)

		stored, err := repo.FindByRowIndex(ctx, "2026", a.RowIndex)
		require.NoError(t, err)
		assert.Equal(t, "CN-0007", stored.ControlNumber)

		taken, err := cnRepo.Exists(ctx, "Checking Unit", "CN-0007")
		require.NoError(t, err)
		assert.True(t, taken)

		// Allocation continues past the reserved sequence
		next, err := svc.ReleaseVouchers(ctx, staffActor, []int64{b.RowIndex}, "Checking Unit", "")
		require.NoError(t, err)
		assert.Equal(t, "CN-0008", next.ControlNumber)
	})

	t.Run("a supplied number already issued is rejected before any write", func(t *testing.T) {
		svc, repo, cnRepo, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		require.NoError(t, cnRepo.Record(ctx, &voucher.IssuedControlNumber{
			TargetUnit: "Checking Unit", Number: "CN-0007", Sequence: 7, IssuedAt: time.Now(),
		}))

		_, err := svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex}, "Checking Unit", "CN-0007")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already issued")

		stored, err := repo.FindByRowIndex(ctx, "2026", a.RowIndex)
		require.NoError(t, err)
		assert.False(t, stored.IsReleased())
	})

	t.Run("denied to non-payable roles", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")

		_, err := svc.ReleaseVouchers(ctx, auditActor, []int64{a.RowIndex}, "Checking Unit", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot release")
	})

	t.Run("empty selection is rejected", func(t *testing.T) {
		svc, _, _, _ := newReleaseFixture()
		_, err := svc.ReleaseVouchers(ctx, staffActor, nil, "Checking Unit", "")
		require.Error(t, err)
	})
}

func TestReleaseService_AssignControlNumber(t *testing.T) {
	ctx := context.Background()

	t.Run("stamps a chosen number and reserves it", func(t *testing.T) {
		svc, repo, cnRepo, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")

		result, err := svc.AssignControlNumber(ctx, headActor, []int64{a.RowIndex}, "CN-0099", "Checking Unit")
		require.NoError(t, err)
		assert.Equal(t, 1, result.ReleasedCount)

		taken, err := cnRepo.Exists(ctx, "Checking Unit", "CN-0099")
		require.NoError(t, err)
		assert.True(t, taken)
	})

	t.Run("a taken number is rejected before any write", func(t *testing.T) {
		svc, repo, cnRepo, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		require.NoError(t, cnRepo.Record(ctx, &voucher.IssuedControlNumber{
			TargetUnit: "Checking Unit", Number: "CN-0099", Sequence: 1, IssuedAt: time.Now(),
		}))

		_, err := svc.AssignControlNumber(ctx, headActor, []int64{a.RowIndex}, "CN-0099", "Checking Unit")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already issued")

		stored, err := repo.FindByRowIndex(ctx, "2026", a.RowIndex)
		require.NoError(t, err)
		assert.False(t, stored.IsReleased())
	})

	t.Run("a manual number ahead of the sequence advances it", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")

		result, err := svc.AssignControlNumber(ctx, headActor, []int64{a.RowIndex}, "CN-0002", "CPO")
		require.NoError(t, err)
		assert.Equal(t, 1, result.ReleasedCount)

		// The allocator must not recompute the manually taken number
		released, err := svc.ReleaseVouchers(ctx, staffActor, []int64{b.RowIndex}, "CPO", "")
		require.NoError(t, err)
		assert.Equal(t, "CN-0003", released.ControlNumber)
	})

	t.Run("a free-form manual number leaves the sequence alone", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")

		_, err := svc.AssignControlNumber(ctx, headActor, []int64{a.RowIndex}, "SPECIAL-77", "CPO")
		require.NoError(t, err)

		released, err := svc.ReleaseVouchers(ctx, staffActor, []int64{b.RowIndex}, "CPO", "")
		require.NoError(t, err)
		assert.Equal(t, "CN-0001", released.ControlNumber)
	})

	t.Run("cpo cannot assign manually", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")

		result, err := svc.AssignControlNumber(ctx, cpoActor, []int64{a.RowIndex}, "CN-0042", "Checking Unit")
		require.NoError(t, err)
		assert.Equal(t, 0, result.ReleasedCount)
		require.Len(t, result.Failures, 1)
	})
}

func TestReleaseService_CPORelease(t *testing.T) {
	ctx := context.Background()

	releaseBatch := func(t *testing.T, svc *ReleaseService, repo *mockVoucherRepository, rows []int64) string {
		t.Helper()
		r, err := svc.ReleaseVouchers(ctx, staffActor, rows, "Checking Unit", "")
		require.NoError(t, err)
		require.Equal(t, len(rows), r.ReleasedCount)
		return r.ControlNumber
	}

	t.Run("forwards a homogeneous batch under its existing number", func(t *testing.T) {
		svc, repo, _, sink := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")
		cn := releaseBatch(t, svc, repo, []int64{a.RowIndex, b.RowIndex})

		result, err := svc.CPORelease(ctx, cpoActor, []int64{a.RowIndex, b.RowIndex}, "Cash Office", "payment processing")
		require.NoError(t, err)
		assert.Equal(t, cn, result.ControlNumber)
		assert.Equal(t, 2, result.ReleasedCount)

		stored, err := repo.FindByRowIndex(ctx, "2026", a.RowIndex)
		require.NoError(t, err)
		assert.Equal(t, "Cash Office", stored.ReleasedTo)
		assert.Equal(t, cn, stored.ControlNumber)

		assert.NotEmpty(t, sink.byAction("cpoRelease"))
	})

	t.Run("purpose is mandatory", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		releaseBatch(t, svc, repo, []int64{a.RowIndex})

		_, err := svc.CPORelease(ctx, cpoActor, []int64{a.RowIndex}, "Cash Office", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Purpose")
	})

	t.Run("mixed control numbers fail with no changes", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")
		releaseBatch(t, svc, repo, []int64{a.RowIndex})
		releaseBatch(t, svc, repo, []int64{b.RowIndex})

		_, err := svc.CPORelease(ctx, cpoActor, []int64{a.RowIndex, b.RowIndex}, "Cash Office", "payment processing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "mixed control numbers")

		stored, err := repo.FindByRowIndex(ctx, "2026", a.RowIndex)
		require.NoError(t, err)
		assert.Equal(t, "Checking Unit", stored.ReleasedTo)
	})

	t.Run("unreleased voucher in the batch fails with no changes", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		b := seedVoucher(t, repo, "2026", "VN-002")
		releaseBatch(t, svc, repo, []int64{a.RowIndex})

		_, err := svc.CPORelease(ctx, cpoActor, []int64{a.RowIndex, b.RowIndex}, "Cash Office", "payment processing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no control number")
	})

	t.Run("missing rows fail the whole batch", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		releaseBatch(t, svc, repo, []int64{a.RowIndex})

		_, err := svc.CPORelease(ctx, cpoActor, []int64{a.RowIndex, 999}, "Cash Office", "payment processing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("payable roles cannot forward", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		releaseBatch(t, svc, repo, []int64{a.RowIndex})

		_, err := svc.CPORelease(ctx, headActor, []int64{a.RowIndex}, "Cash Office", "payment processing")
		require.Error(t, err)
	})

	t.Run("admin may forward", func(t *testing.T) {
		svc, repo, _, _ := newReleaseFixture()
		a := seedVoucher(t, repo, "2026", "VN-001")
		cn := releaseBatch(t, svc, repo, []int64{a.RowIndex})

		result, err := svc.CPORelease(ctx, adminActor, []int64{a.RowIndex}, "Cash Office", "payment processing")
		require.NoError(t, err)
		assert.Equal(t, cn, result.ControlNumber)
		assert.Equal(t, 1, result.ReleasedCount)
	})
}

func TestReleaseService_NextControlNumber(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newReleaseFixture()
	a := seedVoucher(t, repo, "2026", "VN-001")

	next, err := svc.NextControlNumber(ctx, staffActor, "Checking Unit")
	require.NoError(t, err)
	assert.Equal(t, "CN-0001", next)

	// Peeking does not reserve
	next, err = svc.NextControlNumber(ctx, staffActor, "Checking Unit")
	require.NoError(t, err)
	assert.Equal(t, "CN-0001", next)

	_, err = svc.ReleaseVouchers(ctx, staffActor, []int64{a.RowIndex}, "Checking Unit", "")
	require.NoError(t, err)

	next, err = svc.NextControlNumber(ctx, staffActor, "Checking Unit")
	require.NoError(t, err)
	assert.Equal(t, "CN-0002", next)

	_, err = svc.NextControlNumber(ctx, auditActor, "Checking Unit")
	require.Error(t, err)
}
