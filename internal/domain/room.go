/**
 * @description
 * This file defines the Room aggregate: the live audio/video space that
 * accumulates diamond spend and exposes a treasure-box tier derived from the
 * same-day spend. Period counters (`DiamondsUsedToday`,
 * `DiamondsUsedCurrentSeason`) are reset by an external scheduled job.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room maps directly to the `rooms` table in the database.
type Room struct {
	ID                        uuid.UUID   `json:"id"`
	OwnerID                   uuid.UUID   `json:"owner_id"`
	Name                      string      `json:"name"`
	CountryCode               string      `json:"country_code"`
	ActiveUsers               []uuid.UUID `json:"active_users"`
	LastMembers               []uuid.UUID `json:"last_members"`
	DiamondsUsedToday         int64       `json:"diamonds_used_today"`
	TotalDiamondsUsed         int64       `json:"total_diamonds_used"`
	DiamondsUsedCurrentSeason int64       `json:"diamonds_used_current_season"`
	TreasureBoxLevel          int         `json:"treasure_box_level"`
	LastHostJoinedAt          *time.Time  `json:"last_host_joined_at,omitempty"`
	HostingTimeCurrentSession int64       `json:"hosting_time_current_session"` // seconds
	CreatedAt                 time.Time   `json:"created_at"`
	UpdatedAt                 time.Time   `json:"updated_at"`
}

// RoomContribution is one row of the supporter leaderboard for a room.
type RoomContribution struct {
	AccountID uuid.UUID `json:"account_id"`
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Level     int       `json:"level"`
	Diamonds  int64     `json:"diamonds"`
	Rank      int64     `json:"rank"`
}
