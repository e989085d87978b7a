package database

import (
	"context"
	"fmt"

	"workmarket/internal/models"
)

func (db *DB) AppendTransition(ctx context.Context, t *models.StatusTransition) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO status_transitions (entity, entity_id, from_status, to_status, at) VALUES (?, ?, ?, ?, ?)`,
		t.Entity, t.EntityID, t.From, t.To, t.At.UTC())
	if err != nil {
		return fmt.Errorf("failed to append transition: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	return nil
}

func (db *DB) ListTransitions(ctx context.Context, entity string, entityID int64) ([]*models.StatusTransition, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, entity, entity_id, from_status, to_status, at
		 FROM status_transitions WHERE entity = ? AND entity_id = ? ORDER BY at ASC, id ASC`,
		entity, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]*models.StatusTransition, 0)
	for rows.Next() {
		t := &models.StatusTransition{}
		if err := rows.Scan(&t.ID, &t.Entity, &t.EntityID, &t.From, &t.To, &t.At); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}
