/**
 * @description
 * This file implements the room contribution leaderboard on Redis sorted
 * sets. Each room has one sorted set keyed by room id; a member's score is
 * the diamonds they have spent in that room. Writes are best-effort: a failed
 * increment never fails the gift send that triggered it.
 *
 * @dependencies
 * - context, strings: Standard Go libraries.
 * - github.com/redis/go-redis/v9: The Redis client.
 */

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ContributionEntry is one leaderboard row before account hydration.
type ContributionEntry struct {
	AccountID uuid.UUID
	Diamonds  int64
	Rank      int64
}

// RoomLeaderboard maintains per-room supporter rankings in Redis.
type RoomLeaderboard struct {
	client redis.UniversalClient
	prefix string
}

// NewRoomLeaderboard creates a leaderboard with the given key prefix.
func NewRoomLeaderboard(client redis.UniversalClient, prefix string) *RoomLeaderboard {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = "usefuns:contribution"
	}
	return &RoomLeaderboard{client: client, prefix: strings.TrimSuffix(trimmed, ":")}
}

func (l *RoomLeaderboard) key(roomID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", l.prefix, roomID)
}

// IncrContribution adds diamonds to a sender's score in the room's set.
func (l *RoomLeaderboard) IncrContribution(ctx context.Context, roomID, accountID uuid.UUID, diamonds int64) error {
	if l == nil || l.client == nil {
		return nil
	}
	return l.client.ZIncrBy(ctx, l.key(roomID), float64(diamonds), accountID.String()).Err()
}

// TopContributors returns the highest-scoring members of a room, best first.
func (l *RoomLeaderboard) TopContributors(ctx context.Context, roomID uuid.UUID, limit int) ([]ContributionEntry, error) {
	if l == nil || l.client == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	members, err := l.client.ZRevRangeWithScores(ctx, l.key(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]ContributionEntry, 0, len(members))
	for i, m := range members {
		raw, ok := m.Member.(string)
		if !ok {
			continue
		}
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			continue
		}
		entries = append(entries, ContributionEntry{
			AccountID: id,
			Diamonds:  int64(m.Score),
			Rank:      int64(i + 1),
		})
	}
	return entries, nil
}
