package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/google/uuid"
)

// AllocationLock serializes control-number allocation per target unit.
// Acquire blocks or fails fast depending on the implementation; the
// returned release function must always be called.
type AllocationLock interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// ControlNumberAllocator issues the next sequential control number for
// a target unit. The lock keeps concurrent releases from racing to the
// same sequence; the unique index on issued numbers is the backstop.
type ControlNumberAllocator struct {
	cnRepo voucher.ControlNumberRepository
	lock   AllocationLock
	format string
}

// NewControlNumberAllocator creates a new ControlNumberAllocator
func NewControlNumberAllocator(cnRepo voucher.ControlNumberRepository, lock AllocationLock, format string) *ControlNumberAllocator {
	if format == "" {
		format = "CN-%04d"
	}
	return &ControlNumberAllocator{cnRepo: cnRepo, lock: lock, format: format}
}

// Peek returns the control number the next allocation for targetUnit
// would produce, without reserving it.
func (a *ControlNumberAllocator) Peek(ctx context.Context, targetUnit string) (string, error) {
	max, err := a.cnRepo.MaxSequence(ctx, targetUnit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(a.format, max+1), nil
}

// Next reserves and returns the next control number for targetUnit.
func (a *ControlNumberAllocator) Next(ctx context.Context, targetUnit string) (string, error) {
	release, err := a.lock.Acquire(ctx, "cn-alloc:"+targetUnit)
	if err != nil {
		return "", shared.NewDomainError("STORAGE_ERROR", "Could not acquire control number allocation lock")
	}
	defer release()

	max, err := a.cnRepo.MaxSequence(ctx, targetUnit)
	if err != nil {
		return "", err
	}
	seq := max + 1
	number := fmt.Sprintf(a.format, seq)

	issued := &voucher.IssuedControlNumber{
		ID:         uuid.New(),
		TargetUnit: targetUnit,
		Number:     number,
		Sequence:   seq,
		IssuedAt:   time.Now(),
	}
	if err := a.cnRepo.Record(ctx, issued); err != nil {
		return "", err
	}
	return number, nil
}

// Reserve records a manually chosen control number for a target unit so
// the uniqueness check covers it from then on. A number matching the
// configured format keeps its own sequence, so a manual assignment ahead
// of the counter advances it and Next never recomputes a taken number.
// Free-form numbers record sequence zero and leave the counter alone.
func (a *ControlNumberAllocator) Reserve(ctx context.Context, targetUnit, number string) error {
	release, err := a.lock.Acquire(ctx, "cn-alloc:"+targetUnit)
	if err != nil {
		return shared.NewDomainError("STORAGE_ERROR", "Could not acquire control number allocation lock")
	}
	defer release()

	issued := &voucher.IssuedControlNumber{
		ID:         uuid.New(),
		TargetUnit: targetUnit,
		Number:     number,
		Sequence:   a.sequenceOf(number),
		IssuedAt:   time.Now(),
	}
	return a.cnRepo.Record(ctx, issued)
}

// sequenceOf parses the sequence out of a number in the configured
// format; the round-trip check rejects partial matches like a number
// with trailing characters the scan would silently ignore.
func (a *ControlNumberAllocator) sequenceOf(number string) int64 {
	var seq int64
	if _, err := fmt.Sscanf(number, a.format, &seq); err != nil || seq <= 0 {
		return 0
	}
	if fmt.Sprintf(a.format, seq) != number {
		return 0
	}
	return seq
}

// Validate checks that a manually chosen control number is not already
// issued for the target unit.
func (a *ControlNumberAllocator) Validate(ctx context.Context, targetUnit, number string) error {
	taken, err := a.cnRepo.Exists(ctx, targetUnit, number)
	if err != nil {
		return err
	}
	if taken {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Control number %s is already issued for %s", number, targetUnit))
	}
	return nil
}
