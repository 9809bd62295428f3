/**
 * @description
 * This file defines the typed item capabilities an account can own. Shop
 * purchases land in exactly one of these collections, selected by an
 * exhaustive switch over ItemKind rather than a string-keyed lookup.
 */

package domain

import "fmt"

// ItemKind enumerates the capabilities a shop item can grant.
type ItemKind string

const (
	ItemFrame        ItemKind = "frame"
	ItemChatBubble   ItemKind = "chat_bubble"
	ItemTheme        ItemKind = "theme"
	ItemVehicle      ItemKind = "vehicle"
	ItemRelationship ItemKind = "relationship"
	ItemSpecialID    ItemKind = "special_id"
	ItemLockRoom     ItemKind = "lock_room"
	ItemExtraSeat    ItemKind = "extra_seat"
)

// ParseItemKind validates a wire-level item kind string.
func ParseItemKind(s string) (ItemKind, error) {
	switch k := ItemKind(s); k {
	case ItemFrame, ItemChatBubble, ItemTheme, ItemVehicle,
		ItemRelationship, ItemSpecialID, ItemLockRoom, ItemExtraSeat:
		return k, nil
	}
	return "", fmt.Errorf("unknown item kind %q", s)
}

// ItemSet holds one typed collection per capability. Each slice carries the
// resource identifiers of the owned items of that kind.
type ItemSet struct {
	Frames        []string `json:"frames"`
	ChatBubbles   []string `json:"chat_bubbles"`
	Themes        []string `json:"themes"`
	Vehicles      []string `json:"vehicles"`
	Relationships []string `json:"relationships"`
	SpecialIDs    []string `json:"special_ids"`
	LockRooms     []string `json:"lock_rooms"`
	ExtraSeats    []string `json:"extra_seats"`
}

// Add appends a resource to the collection matching the kind. The switch is
// exhaustive over ItemKind; an unknown kind is a programming error surfaced
// as a non-nil error rather than a silent drop.
func (s *ItemSet) Add(kind ItemKind, resource string) error {
	switch kind {
	case ItemFrame:
		s.Frames = append(s.Frames, resource)
	case ItemChatBubble:
		s.ChatBubbles = append(s.ChatBubbles, resource)
	case ItemTheme:
		s.Themes = append(s.Themes, resource)
	case ItemVehicle:
		s.Vehicles = append(s.Vehicles, resource)
	case ItemRelationship:
		s.Relationships = append(s.Relationships, resource)
	case ItemSpecialID:
		s.SpecialIDs = append(s.SpecialIDs, resource)
	case ItemLockRoom:
		s.LockRooms = append(s.LockRooms, resource)
	case ItemExtraSeat:
		s.ExtraSeats = append(s.ExtraSeats, resource)
	default:
		return fmt.Errorf("unknown item kind %q", kind)
	}
	return nil
}
