package paymentrepo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sqlc-dev/pqtype"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/infrastructure/database"
)

type paymentRepositoryImpl struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *database.DBManager, logger zerolog.Logger) IPaymentRepository {
	return &paymentRepositoryImpl{
		db:     db.Db,
		logger: logger,
	}
}

const createPaymentQuery = `
INSERT INTO payments (id, payment_id, user_uid, type, amount, memo, order_id, txid, status, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

func (r *paymentRepositoryImpl) Create(ctx context.Context, record *domain.PaymentRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, createPaymentQuery,
		record.ID,
		record.PaymentID,
		record.UserUID,
		string(record.Type),
		record.Amount,
		record.Memo,
		nullString(record.OrderID),
		nullString(record.TxID),
		string(record.Status),
		pqtype.NullRawMessage{RawMessage: record.Metadata, Valid: record.Metadata != nil},
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("payment_id", record.PaymentID).Msg("Failed to create payment record")
		return fmt.Errorf("failed to create payment record: %w", err)
	}

	return nil
}

const updatePaymentStatusQuery = `
UPDATE payments SET status = $2, txid = COALESCE($3, txid), updated_at = $4 WHERE payment_id = $1`

func (r *paymentRepositoryImpl) UpdateStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, txid string) error {
	var txidArg sql.NullString
	if txid != "" {
		txidArg = sql.NullString{String: txid, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, updatePaymentStatusQuery, paymentID, string(status), txidArg, time.Now()); err != nil {
		r.logger.Error().Err(err).Str("payment_id", paymentID).Str("status", string(status)).Msg("Failed to update payment status")
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	return nil
}

const getPaymentQuery = `
SELECT id, payment_id, user_uid, type, amount, memo, order_id, txid, status, metadata, created_at, updated_at
FROM payments WHERE payment_id = $1`

func (r *paymentRepositoryImpl) GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, getPaymentQuery, paymentID)

	record, err := r.scanPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to get payment record")
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}

	return record, nil
}

const listPaymentsQuery = `
SELECT id, payment_id, user_uid, type, amount, memo, order_id, txid, status, metadata, created_at, updated_at
FROM payments WHERE user_uid = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

func (r *paymentRepositoryImpl) ListByUser(ctx context.Context, userUID string, limit, offset int) ([]domain.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx, listPaymentsQuery, userUID, limit, offset)
	if err != nil {
		r.logger.Error().Err(err).Str("user_uid", userUID).Msg("Failed to list payment records")
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		record, err := r.scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment record: %w", err)
		}
		records = append(records, *record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment records: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *paymentRepositoryImpl) scanPayment(row rowScanner) (*domain.PaymentRecord, error) {
	var (
		record   domain.PaymentRecord
		orderID  sql.NullString
		txid     sql.NullString
		metadata pqtype.NullRawMessage
	)

	err := row.Scan(
		&record.ID,
		&record.PaymentID,
		&record.UserUID,
		&record.Type,
		&record.Amount,
		&record.Memo,
		&orderID,
		&txid,
		&record.Status,
		&metadata,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if orderID.Valid {
		record.OrderID = &orderID.String
	}
	if txid.Valid {
		record.TxID = &txid.String
	}
	if metadata.Valid {
		record.Metadata = metadata.RawMessage
	}

	return &record, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
