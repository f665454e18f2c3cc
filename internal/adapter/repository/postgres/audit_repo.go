package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/waterledger/internal/domain"
	"github.com/iho/waterledger/internal/usecase"
)

// AuditRepository implements audit log persistence.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

const insertAuditQuery = `
	INSERT INTO audit_logs (
		id, actor, action, resource_type, resource_id,
		client_id, request_id, before_state, after_state,
		status, error_message, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// Create inserts a new audit log entry outside any transaction.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return insertAudit(ctx, r.pool, log)
}

// CreateTx inserts a new audit log entry inside the caller's
// transaction, so the audit row commits with the mutation it records.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return insertAudit(ctx, tx.(*Tx).PgxTx(), log)
}

func insertAudit(ctx context.Context, q querier, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	beforeState, afterState, err := marshalStates(log)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, insertAuditQuery,
		log.ID, log.Actor, log.Action, log.ResourceType, log.ResourceID,
		log.ClientID, log.RequestID, beforeState, afterState,
		log.Status, log.ErrorMessage, log.CreatedAt,
	)

	return err
}

func marshalStates(log *domain.AuditLog) ([]byte, []byte, error) {
	var beforeState, afterState []byte
	var err error

	if log.BeforeState != nil {
		beforeState, err = json.Marshal(log.BeforeState)
		if err != nil {
			return nil, nil, err
		}
	}

	if log.AfterState != nil {
		afterState, err = json.Marshal(log.AfterState)
		if err != nil {
			return nil, nil, err
		}
	}

	return beforeState, afterState, nil
}

// List retrieves audit logs with filtering.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, actor, action, resource_type, resource_id,
		       client_id, request_id, before_state, after_state,
		       status, error_message, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []any{}

	addFilter := func(clause, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		query += fmt.Sprintf(" AND %s = $%d", clause, len(args))
	}

	addFilter("actor", filter.Actor)
	addFilter("action", filter.Action)
	addFilter("resource_type", filter.ResourceType)
	addFilter("resource_id", filter.ResourceID)
	addFilter("client_id", filter.ClientID)

	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}

	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	limit, offset := domain.ClampPagination(filter.Limit, filter.Offset)
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var beforeState, afterState []byte

		if err := rows.Scan(
			&log.ID, &log.Actor, &log.Action, &log.ResourceType, &log.ResourceID,
			&log.ClientID, &log.RequestID, &beforeState, &afterState,
			&log.Status, &log.ErrorMessage, &log.CreatedAt,
		); err != nil {
			return nil, err
		}

		if len(beforeState) > 0 {
			_ = json.Unmarshal(beforeState, &log.BeforeState)
		}
		if len(afterState) > 0 {
			_ = json.Unmarshal(afterState, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
