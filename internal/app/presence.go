/**
 * @description
 * This file implements the persistent side of room presence: membership
 * changes, the user's "currently joined room" pointer, seat toggles and
 * host-session timing. The ephemeral per-connection state lives in the
 * gateway; these methods record the durable effects.
 */

package app

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/domain"
)

// JoinRoom records a user's presence in a room. When the joining user owns
// the room, a host session opens. Joining the same room twice is idempotent.
func (s *Service) JoinRoom(ctx context.Context, userID, roomID uuid.UUID) (*domain.Room, error) {
	if userID == uuid.Nil || roomID == uuid.Nil {
		return nil, fmt.Errorf("%w: user and room ids are required", ErrValidation)
	}
	room, err := s.repo.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}
	if err := s.repo.AddRoomMember(ctx, roomID, userID); err != nil {
		return nil, fmt.Errorf("failed to add room member: %w", err)
	}
	if err := s.repo.SetAccountRoom(ctx, userID, &roomID); err != nil {
		return nil, fmt.Errorf("failed to set account room: %w", err)
	}
	if room.OwnerID == userID {
		if err := s.repo.MarkHostJoined(ctx, roomID, s.now()); err != nil {
			return nil, fmt.Errorf("failed to open host session: %w", err)
		}
	}

	refreshed, err := s.repo.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload room: %w", err)
	}
	s.broadcaster.EmitToRoom(roomID, domain.EvtRoomDataUpdate, refreshed)
	return refreshed, nil
}

// LeaveRoom removes a user's presence. When the departing user owns the room
// and a host session is open, the session is finalized as the elapsed time
// since the host joined. Disconnect cleanup uses the same path.
func (s *Service) LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	if userID == uuid.Nil || roomID == uuid.Nil {
		return fmt.Errorf("%w: user and room ids are required", ErrValidation)
	}
	room, err := s.repo.FindRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}
	if err := s.repo.RemoveRoomMember(ctx, roomID, userID); err != nil {
		return fmt.Errorf("failed to remove room member: %w", err)
	}
	if err := s.repo.SetAccountRoom(ctx, userID, nil); err != nil {
		return fmt.Errorf("failed to clear account room: %w", err)
	}
	if room.OwnerID == userID {
		seconds, hostErr := s.repo.FinalizeHostSession(ctx, roomID, s.now())
		if hostErr != nil {
			return fmt.Errorf("failed to finalize host session: %w", hostErr)
		}
		if seconds > 0 {
			log.Printf("level=info component=room msg=\"host session finalized\" room_id=%s host_id=%s seconds=%d", roomID, userID, seconds)
		}
	}

	refreshed, err := s.repo.FindRoomByID(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to reload room: %w", err)
	}
	s.broadcaster.EmitToRoom(roomID, domain.EvtRoomDataUpdate, refreshed)
	return nil
}

// SetSeat toggles the on-seat flag and pushes the refreshed profile to the
// user's personal channel.
func (s *Service) SetSeat(ctx context.Context, userID uuid.UUID, onSeat bool) (*domain.Account, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	account, err := s.repo.SetAccountSeat(ctx, userID, onSeat)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle seat: %w", err)
	}
	s.broadcaster.EmitToUser(userID, domain.EvtUserDataUpdate, account)
	return account, nil
}
