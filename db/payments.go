package db

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
)

type PaymentRepository interface {
	Create(ctx context.Context, record *models.PaymentRecord) error
	Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	Update(ctx context.Context, record *models.PaymentRecord) error
	// LatestCompleted returns the most recently paid completed record for the pair, or a not found error.
	LatestCompleted(ctx context.Context, address, service string) (*models.PaymentRecord, error)
	ListByAddress(ctx context.Context, address string) ([]*models.PaymentRecord, error)
}

// NewPaymentRepository picks the MySQL store when a connection is available.
func NewPaymentRepository(dataDB *sql.DB) PaymentRepository {
	if dataDB == nil {
		return NewMemoryPaymentRepository()
	}
	return &sqlPaymentRepository{dataDB: dataDB}
}

type memoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]models.PaymentRecord
}

func NewMemoryPaymentRepository() PaymentRepository {
	return &memoryPaymentRepository{payments: map[string]models.PaymentRecord{}}
}

func (m *memoryPaymentRepository) Create(_ context.Context, record *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[record.PaymentID]; ok {
		return errors.NewValidationError("payment already exists")
	}
	m.payments[record.PaymentID] = *record
	return nil
}

func (m *memoryPaymentRepository) Get(_ context.Context, paymentID string) (*models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.payments[paymentID]
	if !ok {
		return nil, errors.NewNotFoundError("payment not found")
	}
	return &record, nil
}

func (m *memoryPaymentRepository) Update(_ context.Context, record *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[record.PaymentID]; !ok {
		return errors.NewNotFoundError("payment not found")
	}
	m.payments[record.PaymentID] = *record
	return nil
}

func (m *memoryPaymentRepository) LatestCompleted(_ context.Context, address, service string) (*models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *models.PaymentRecord
	for _, record := range m.payments {
		if record.Status != models.PaymentCompleted || record.PaidAt == nil {
			continue
		}
		if !strings.EqualFold(record.UserAddress, address) || record.Service != service {
			continue
		}
		if latest == nil || record.PaidAt.After(*latest.PaidAt) {
			r := record
			latest = &r
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("no completed payment")
	}
	return latest, nil
}

func (m *memoryPaymentRepository) ListByAddress(_ context.Context, address string) ([]*models.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := []*models.PaymentRecord{}
	for _, record := range m.payments {
		if strings.EqualFold(record.UserAddress, address) {
			r := record
			records = append(records, &r)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

type sqlPaymentRepository struct {
	dataDB *sql.DB
}

var paymentColumns = []string{
	"payment_id", "service", "amount", "currency", "user_address", "status",
	"expires_at", "transaction_hash", "paid_at", "created_at",
}

func selectPayments() sq.SelectBuilder {
	return sq.Select(paymentColumns...).From("payments")
}

func (s *sqlPaymentRepository) Create(ctx context.Context, record *models.PaymentRecord) error {
	_, err := sq.
		Insert("payments").
		Columns(paymentColumns...).
		Values(record.PaymentID, record.Service, record.Amount, record.Currency, strings.ToLower(record.UserAddress), record.Status,
			record.ExpiresAt, nullString(record.TransactionHash), nullTime(record.PaidAt), record.CreatedAt).
		RunWith(s.dataDB).
		ExecContext(ctx)
	if err != nil {
		return errors.HandleDataDBError(err)
	}
	return nil
}

func (s *sqlPaymentRepository) Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	row := selectPayments().
		Where(sq.Eq{"payment_id": paymentID}).
		Limit(1).
		RunWith(s.dataDB).
		QueryRowContext(ctx)
	return scanPayment(row)
}

func (s *sqlPaymentRepository) Update(ctx context.Context, record *models.PaymentRecord) error {
	res, err := sq.
		Update("payments").
		Set("status", record.Status).
		Set("transaction_hash", nullString(record.TransactionHash)).
		Set("paid_at", nullTime(record.PaidAt)).
		Where(sq.Eq{"payment_id": record.PaymentID}).
		RunWith(s.dataDB).
		ExecContext(ctx)
	if err != nil {
		return errors.HandleDataDBError(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("payment not found")
	}
	return nil
}

func (s *sqlPaymentRepository) LatestCompleted(ctx context.Context, address, service string) (*models.PaymentRecord, error) {
	row := selectPayments().
		Where(sq.Eq{"user_address": strings.ToLower(address), "service": service, "status": models.PaymentCompleted}).
		Where(sq.NotEq{"paid_at": nil}).
		OrderBy("paid_at DESC").
		Limit(1).
		RunWith(s.dataDB).
		QueryRowContext(ctx)
	return scanPayment(row)
}

func (s *sqlPaymentRepository) ListByAddress(ctx context.Context, address string) ([]*models.PaymentRecord, error) {
	rows, err := selectPayments().
		Where(sq.Eq{"user_address": strings.ToLower(address)}).
		OrderBy("created_at DESC").
		RunWith(s.dataDB).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	defer rows.Close()

	records := []*models.PaymentRecord{}
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	return records, nil
}

func scanPayment(row sq.RowScanner) (*models.PaymentRecord, error) {
	var (
		record = &models.PaymentRecord{}
		txHash sql.NullString
		paidAt sql.NullTime
	)
	err := row.Scan(&record.PaymentID, &record.Service, &record.Amount, &record.Currency, &record.UserAddress, &record.Status,
		&record.ExpiresAt, &txHash, &paidAt, &record.CreatedAt)
	if err != nil {
		return nil, errors.HandleDataDBError(err)
	}
	if txHash.Valid {
		record.TransactionHash = &txHash.String
	}
	if paidAt.Valid {
		record.PaidAt = &paidAt.Time
	}
	return record, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
