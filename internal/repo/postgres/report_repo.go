package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type ReportRecord struct {
	ID          int64
	ReporterID  int64
	ReportedID  int64
	Reason      string
	Description string
	Status      string
	CreatedAt   time.Time
}

type ReportRepo struct{}

func NewReportRepo() *ReportRepo {
	return &ReportRepo{}
}

func (r *ReportRepo) Create(ctx context.Context, tx pgx.Tx, reporterID, reportedID int64, reason, description string) (int64, error) {
	if reporterID <= 0 || reportedID <= 0 || reason == "" {
		return 0, fmt.Errorf("invalid report payload")
	}
	if tx == nil {
		return 0, fmt.Errorf("transaction is required")
	}

	var id int64
	err := tx.QueryRow(ctx, `
INSERT INTO reports (
	reporter_id,
	reported_id,
	reason,
	description,
	status,
	created_at
) VALUES ($1, $2, $3, $4, 'pending', NOW())
RETURNING id
`, reporterID, reportedID, reason, description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}

	return id, nil
}
