package voucher

import (
	"context"
	"strings"
	"sync"

	"github.com/fmca/voucher-backend/internal/domain/audit"
	"github.com/fmca/voucher-backend/internal/domain/shared"
	"github.com/fmca/voucher-backend/internal/domain/voucher"
	"github.com/google/uuid"
)

// mockVoucherRepository is an in-memory voucher.Repository for service tests
type mockVoucherRepository struct {
	mu       sync.Mutex
	vouchers map[string]map[int64]*voucher.Voucher // year -> rowIndex
	nextRow  map[string]int64
	saveErr  error
}

func newMockVoucherRepository() *mockVoucherRepository {
	return &mockVoucherRepository{
		vouchers: make(map[string]map[int64]*voucher.Voucher),
		nextRow:  make(map[string]int64),
	}
}

func (m *mockVoucherRepository) add(v *voucher.Voucher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.vouchers[v.Year] == nil {
		m.vouchers[v.Year] = make(map[int64]*voucher.Voucher)
	}
	if v.RowIndex == 0 {
		m.nextRow[v.Year]++
		v.RowIndex = m.nextRow[v.Year]
	} else if v.RowIndex > m.nextRow[v.Year] {
		m.nextRow[v.Year] = v.RowIndex
	}
	copied := *v
	m.vouchers[v.Year][v.RowIndex] = &copied
}

func (m *mockVoucherRepository) FindByRowIndex(ctx context.Context, year string, rowIndex int64) (*voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vouchers[year][rowIndex]
	if !ok {
		return nil, nil
	}
	copied := *v
	return &copied, nil
}

func (m *mockVoucherRepository) FindByRowIndexes(ctx context.Context, year string, rowIndexes []int64) ([]voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]voucher.Voucher, 0, len(rowIndexes))
	for _, ri := range rowIndexes {
		if v, ok := m.vouchers[year][ri]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVoucherRepository) FindByVoucherNumber(ctx context.Context, year, voucherNumber string) (*voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers[year] {
		if v.VoucherNumber == voucherNumber {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockVoucherRepository) FindByOldVoucherNumber(ctx context.Context, year, oldVoucherNumber string) (*voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.vouchers[year] {
		if v.OldVoucherNumber == oldVoucherNumber && oldVoucherNumber != "" {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockVoucherRepository) FindByControlNumber(ctx context.Context, year, controlNumber string) ([]voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []voucher.Voucher
	for _, v := range m.vouchers[year] {
		if v.ControlNumber == controlNumber {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVoucherRepository) FindAll(ctx context.Context, year string, filter voucher.Filter) (shared.Paginated[voucher.Voucher], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []voucher.Voucher
	for _, v := range m.vouchers[year] {
		if filter.Search != "" &&
			!strings.Contains(v.Payee, filter.Search) &&
			!strings.Contains(v.VoucherNumber, filter.Search) &&
			!strings.Contains(v.Particular, filter.Search) {
			continue
		}
		items = append(items, *v)
	}
	return shared.NewPaginated(items, int64(len(items)), 1, len(items)+1), nil
}

func (m *mockVoucherRepository) FindPendingDeletions(ctx context.Context, year string) ([]voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []voucher.Voucher
	for _, v := range m.vouchers[year] {
		if v.PendingDeletion {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *mockVoucherRepository) Create(ctx context.Context, v *voucher.Voucher) error {
	m.add(v)
	return nil
}

func (m *mockVoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *v
	m.vouchers[v.Year][v.RowIndex] = &copied
	return nil
}

func (m *mockVoucherRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for year, rows := range m.vouchers {
		for ri, v := range rows {
			if v.ID == id {
				delete(m.vouchers[year], ri)
				return nil
			}
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Voucher not found")
}

var _ voucher.Repository = (*mockVoucherRepository)(nil)

// mockSink collects audit records in memory
type mockSink struct {
	mu      sync.Mutex
	records []*audit.Record
	err     error
}

func (m *mockSink) Append(ctx context.Context, record *audit.Record) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *mockSink) byAction(action string) []*audit.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*audit.Record
	for _, r := range m.records {
		if r.Action == action {
			out = append(out, r)
		}
	}
	return out
}

var _ audit.Sink = (*mockSink)(nil)

// mockCategoryCatalog answers Exists from a fixed name set
type mockCategoryCatalog struct {
	names map[string]bool
}

func newMockCategoryCatalog(names ...string) *mockCategoryCatalog {
	m := &mockCategoryCatalog{names: make(map[string]bool)}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

func (m *mockCategoryCatalog) List(ctx context.Context) ([]voucher.Category, error) {
	out := make([]voucher.Category, 0, len(m.names))
	for n := range m.names {
		out = append(out, *voucher.NewCategory(n, 0))
	}
	return out, nil
}

func (m *mockCategoryCatalog) Exists(ctx context.Context, name string) (bool, error) {
	return m.names[name], nil
}

func (m *mockCategoryCatalog) Save(ctx context.Context, c *voucher.Category) error {
	m.names[c.Name] = true
	return nil
}

func (m *mockCategoryCatalog) Delete(ctx context.Context, id uuid.UUID) error {
	return nil
}

var _ voucher.CategoryCatalog = (*mockCategoryCatalog)(nil)

// mockControlNumberRepository tracks issued numbers per target unit
type mockControlNumberRepository struct {
	mu     sync.Mutex
	maxSeq map[string]int64
	issued map[string]bool // unit + ":" + number
}

func newMockControlNumberRepository() *mockControlNumberRepository {
	return &mockControlNumberRepository{
		maxSeq: make(map[string]int64),
		issued: make(map[string]bool),
	}
}

func (m *mockControlNumberRepository) MaxSequence(ctx context.Context, targetUnit string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxSeq[targetUnit], nil
}

func (m *mockControlNumberRepository) Record(ctx context.Context, issued *voucher.IssuedControlNumber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := issued.TargetUnit + ":" + issued.Number
	if m.issued[key] {
		return shared.NewDomainError("ALREADY_EXISTS", "Control number already issued")
	}
	m.issued[key] = true
	if issued.Sequence > m.maxSeq[issued.TargetUnit] {
		m.maxSeq[issued.TargetUnit] = issued.Sequence
	}
	return nil
}

func (m *mockControlNumberRepository) Exists(ctx context.Context, targetUnit, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issued[targetUnit+":"+number], nil
}

var _ voucher.ControlNumberRepository = (*mockControlNumberRepository)(nil)

// noopLock is an AllocationLock that always grants immediately
type noopLock struct{}

func (noopLock) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}
