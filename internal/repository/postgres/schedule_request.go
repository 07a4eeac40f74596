package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/onboarding-server/internal/model"
)

var _ model.ScheduleRequestStore = (*ScheduleRequestRepository)(nil)

type ScheduleRequestRepository struct {
	db *Connection
}

func NewScheduleRequestRepository(db *Connection) *ScheduleRequestRepository {
	return &ScheduleRequestRepository{db: db}
}

const scheduleRequestColumns = `id, requester_id, company_id, type, status, windows, metadata, created_at`

func scanScheduleRequest(row pgx.Row) (model.ScheduleRequest, error) {
	var (
		req      model.ScheduleRequest
		windows  []byte
		metadata []byte
	)
	err := row.Scan(
		&req.ID, &req.RequesterID, &req.CompanyID, &req.Type, &req.Status,
		&windows, &metadata, &req.CreatedAt,
	)
	if err != nil {
		return model.ScheduleRequest{}, err
	}
	if err := json.Unmarshal(windows, &req.Windows); err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("failed to decode windows: %w", err)
	}
	if len(metadata) > 0 {
		req.Metadata = json.RawMessage(metadata)
	}
	return req, nil
}

func (r *ScheduleRequestRepository) Create(ctx context.Context, request model.ScheduleRequest) (model.ScheduleRequest, error) {
	query := `INSERT INTO schedule_requests (id, requester_id, company_id, type, status, windows, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			  RETURNING ` + scheduleRequestColumns

	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.Status == "" {
		request.Status = model.ScheduleStatusPending
	}

	windows, err := json.Marshal(request.Windows)
	if err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("failed to encode windows: %w", err)
	}
	var metadata any
	if len(request.Metadata) > 0 {
		metadata = string(request.Metadata)
	}

	saved, err := scanScheduleRequest(r.db.QueryRow(ctx, query,
		request.ID, request.RequesterID, request.CompanyID, request.Type, string(request.Status),
		windows, metadata,
	))
	if err != nil {
		return model.ScheduleRequest{}, fmt.Errorf("failed to create schedule request: %w", err)
	}
	return saved, nil
}

func (r *ScheduleRequestRepository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]model.ScheduleRequest, error) {
	query := `SELECT ` + scheduleRequestColumns + ` FROM schedule_requests
			  WHERE requester_id = $1
			  ORDER BY created_at DESC, id`

	rows, err := r.db.Query(ctx, query, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule requests: %w", err)
	}
	defer rows.Close()

	var out []model.ScheduleRequest
	for rows.Next() {
		req, err := scanScheduleRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule requests: %w", err)
	}
	return out, nil
}
