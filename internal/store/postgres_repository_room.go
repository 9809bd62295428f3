/**
 * @description
 * This file implements room persistence: presence membership, the member
 * history trail, and host-session timing. Presence rows live in a separate
 * `room_members` table rather than an array column so joins and removals are
 * single-row operations.
 *
 * @dependencies
 * - context, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: Database access.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/usefuns/gifting-service/internal/domain"
)

// FindRoomByID retrieves a room with its current member set.
func (r *PostgresRepository) FindRoomByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	query := `
		SELECT id, owner_id, name, country_code,
		       diamonds_used_today, total_diamonds_used, diamonds_used_current_season,
		       treasure_box_level, last_host_joined_at, hosting_time_current_session,
		       created_at, updated_at
		FROM rooms WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, roomID).Scan(
		&room.ID, &room.OwnerID, &room.Name, &room.CountryCode,
		&room.DiamondsUsedToday, &room.TotalDiamondsUsed, &room.DiamondsUsedCurrentSeason,
		&room.TreasureBoxLevel, &room.LastHostJoinedAt, &room.HostingTimeCurrentSession,
		&room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx, "SELECT account_id FROM room_members WHERE room_id = $1", roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		room.ActiveUsers = append(room.ActiveUsers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	histRows, err := r.db.Query(ctx, `
		SELECT account_id FROM room_member_history
		WHERE room_id = $1 ORDER BY left_at DESC LIMIT 50
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer histRows.Close()
	for histRows.Next() {
		var id uuid.UUID
		if err := histRows.Scan(&id); err != nil {
			return nil, err
		}
		room.LastMembers = append(room.LastMembers, id)
	}
	return &room, histRows.Err()
}

// AddRoomMember records presence; joining twice is idempotent.
func (r *PostgresRepository) AddRoomMember(ctx context.Context, roomID, accountID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO room_members (room_id, account_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (room_id, account_id) DO NOTHING
	`, roomID, accountID)
	return err
}

// RemoveRoomMember removes presence and appends the departure to the room's
// member history in one transaction.
func (r *PostgresRepository) RemoveRoomMember(ctx context.Context, roomID, accountID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM room_members WHERE room_id = $1 AND account_id = $2", roomID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO room_member_history (room_id, account_id, left_at) VALUES ($1, $2, NOW())
		`, roomID, accountID)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// MarkHostJoined opens a host session by stamping the join time.
func (r *PostgresRepository) MarkHostJoined(ctx context.Context, roomID uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE rooms SET last_host_joined_at = $1, updated_at = NOW() WHERE id = $2
	`, at, roomID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// FinalizeHostSession closes an open host session: the session duration
// becomes the elapsed seconds since the host joined and the join stamp is
// cleared. The WHERE guard makes the call a no-op when no session is open, so
// duplicate leave/disconnect events cannot double-finalize.
func (r *PostgresRepository) FinalizeHostSession(ctx context.Context, roomID uuid.UUID, at time.Time) (int64, error) {
	var seconds int64
	err := r.db.QueryRow(ctx, `
		UPDATE rooms
		SET hosting_time_current_session = GREATEST(0, EXTRACT(EPOCH FROM ($1::timestamptz - last_host_joined_at))::bigint),
		    last_host_joined_at = NULL,
		    updated_at = NOW()
		WHERE id = $2 AND last_host_joined_at IS NOT NULL
		RETURNING hosting_time_current_session
	`, at, roomID).Scan(&seconds)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}
	return seconds, nil
}
