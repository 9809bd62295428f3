/**
 * @description
 * This file contains the core business logic for the gifting-service. The
 * `Service` struct orchestrates every economy operation, coordinating between
 * the database repository, the Redis contribution leaderboard, the broadcast
 * gateway and the message broker.
 *
 * Key features:
 * - Implements the gift send state machine: Validating -> Computing ->
 *   Applying -> Broadcasting, with no partial application of the Applying
 *   phase (it is one storage transaction).
 * - The broadcast gateway, random source and clock are injected at
 *   construction; nothing here reaches into ambient global state.
 *
 * @dependencies
 * - context, errors, fmt, log, math/big, math/rand, time: Standard Go libraries.
 * - github.com/google/uuid: Entity identifiers.
 * - internal/domain, internal/store: Domain models and data access.
 * - pkg/rabbitmq: Broker event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/usefuns/gifting-service/internal/domain"
	"github.com/usefuns/gifting-service/internal/store"
	"github.com/usefuns/gifting-service/pkg/rabbitmq"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("gift send rate limit exceeded")
)

// Broadcaster fans out realtime events to connected clients. Delivery is
// at-most-once and best-effort; implementations must never block the caller
// on a slow connection.
type Broadcaster interface {
	EmitToUser(userID uuid.UUID, event string, payload any)
	EmitToRoom(roomID uuid.UUID, event string, payload any)
	EmitToCountry(countryCode string, event string, payload any)
}

// ContributionBoard maintains per-room supporter rankings.
type ContributionBoard interface {
	IncrContribution(ctx context.Context, roomID, accountID uuid.UUID, diamonds int64) error
	TopContributors(ctx context.Context, roomID uuid.UUID, limit int) ([]store.ContributionEntry, error)
}

// RateLimiter bounds how often a subject may perform an action within a window.
type RateLimiter interface {
	ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// randSource is the slice of math/rand the service needs; injected so the
// cashback roll is deterministic under test.
type randSource interface {
	Intn(n int) int
	Int63n(n int64) int64
}

// EconomyConfig carries the tunables the orchestrator needs. All values come
// from configuration; none are hard-coded per deployment.
type EconomyConfig struct {
	LevelThresholds        []*big.Int
	TreasureBoxThresholds  []int64
	CashbackProbabilityPct int
	CashbackMaxShare       float64
	CashbackWindow         time.Duration
	BeansPerDiamond        int64
	GiftRateLimitPerMinute int
}

// Service provides the core business logic for the room economy.
type Service struct {
	repo        store.Repository
	broadcaster Broadcaster
	producer    rabbitmq.Publisher
	board       ContributionBoard
	limiter     RateLimiter
	cfg         EconomyConfig

	rng randSource
	now func() time.Time
}

// NewService creates a new gifting service instance. The broadcaster is a
// required constructor dependency: every component that emits events receives
// its gateway handle here, never through a package-level variable.
func NewService(repo store.Repository, broadcaster Broadcaster, producer rabbitmq.Publisher, cfg EconomyConfig) *Service {
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		producer:    producer,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         time.Now,
	}
}

// SetContributionBoard wires the optional Redis leaderboard. Without it,
// contribution queries return empty results and increments are skipped.
func (s *Service) SetContributionBoard(board ContributionBoard) { s.board = board }

// SetGiftRateLimiter wires the optional distributed rate limiter.
func (s *Service) SetGiftRateLimiter(limiter RateLimiter) { s.limiter = limiter }

// SetRandom replaces the random source; tests inject a seeded one.
func (s *Service) SetRandom(rng randSource) { s.rng = rng }

// SetClock replaces the clock; tests inject a frozen one.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SendGiftRequest is one inbound gift send from a room channel.
type SendGiftRequest struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	RoomID     uuid.UUID
	GiftID     uuid.UUID
	TierID     uuid.UUID
	Count      int64 // display combo count; the economics use the tier quantity
}

// SendGiftResult is the committed outcome of one send.
type SendGiftResult struct {
	TransactionID    uuid.UUID
	DiamondsDebited  int64
	BeansCredited    int64
	CashbackCredited int64
	SenderDiamonds   int64
	SenderLevel      int
	ReceiverBeans    int64
	TreasureBoxLevel int
}

// SendGift runs the full gift transaction state machine. Any failure before
// the Applying phase aborts with no mutation; a failure after the storage
// transaction commits is logged and reported, never rolled back.
func (s *Service) SendGift(ctx context.Context, req SendGiftRequest) (*SendGiftResult, error) {
	// Validating.
	if req.SenderID == uuid.Nil || req.ReceiverID == uuid.Nil || req.RoomID == uuid.Nil ||
		req.GiftID == uuid.Nil || req.TierID == uuid.Nil {
		return nil, fmt.Errorf("%w: sender, receiver, room, gift and tier ids are required", ErrValidation)
	}
	if req.SenderID == req.ReceiverID {
		return nil, fmt.Errorf("%w: cannot send a gift to yourself", ErrValidation)
	}

	if s.limiter != nil && s.cfg.GiftRateLimitPerMinute > 0 {
		count, _, limitErr := s.limiter.ConsumeRateLimit(ctx, "gift_send", req.SenderID.String(), s.cfg.GiftRateLimitPerMinute, time.Minute)
		if limitErr != nil {
			log.Printf("level=warn component=gift msg=\"rate limiter unavailable; allowing send\" sender_id=%s err=%v", req.SenderID, limitErr)
		} else if count > s.cfg.GiftRateLimitPerMinute {
			return nil, ErrRateLimited
		}
	}

	tier, err := s.repo.FindQuantityTierByID(ctx, req.TierID)
	if err != nil {
		return nil, fmt.Errorf("failed to load quantity tier: %w", err)
	}
	gift, err := s.repo.FindGiftByID(ctx, req.GiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load gift: %w", err)
	}
	sender, err := s.repo.FindAccountByID(ctx, req.SenderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender: %w", err)
	}
	receiver, err := s.repo.FindAccountByID(ctx, req.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load receiver: %w", err)
	}
	room, err := s.repo.FindRoomByID(ctx, req.RoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	cost := gift.Diamonds * tier.Quantity
	if cost <= 0 {
		return nil, fmt.Errorf("%w: gift cost must be positive", ErrValidation)
	}
	// Early rejection against the loaded snapshot. The authoritative check
	// happens again inside the storage transaction under the row lock.
	if sender.Diamonds < cost {
		return nil, store.ErrInsufficientFunds
	}

	// Computing.
	now := s.now()
	beans := cost
	var cashback int64
	if gift.Category == domain.GiftSurprise {
		beans = cost / 2
		cashback, err = s.rollCashback(ctx, sender.CountryCode, now)
		if err != nil {
			return nil, fmt.Errorf("failed to roll cashback: %w", err)
		}
	}

	// Applying: one storage transaction, all or nothing.
	applied, err := s.repo.ApplyGiftSend(ctx, store.GiftApplyParams{
		SenderID:         req.SenderID,
		ReceiverID:       req.ReceiverID,
		RoomID:           req.RoomID,
		GiftID:           req.GiftID,
		Quantity:         tier.Quantity,
		DiamondsDebited:  cost,
		BeansCredited:    beans,
		CashbackCredited: cashback,
		CountryCode:      sender.CountryCode,
		Now:              now,
		LevelForXP: func(xp *big.Int) int {
			return LevelForXP(xp, s.cfg.LevelThresholds)
		},
		TreasureBoxLevel: func(spendToday int64) int {
			return TreasureBoxLevelForSpend(spendToday, s.cfg.TreasureBoxThresholds)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply gift send: %w", err)
	}

	result := &SendGiftResult{
		TransactionID:    applied.TransactionID,
		DiamondsDebited:  cost,
		BeansCredited:    beans,
		CashbackCredited: cashback,
		SenderDiamonds:   applied.SenderDiamonds,
		SenderLevel:      applied.SenderLevel,
		ReceiverBeans:    applied.ReceiverBeans,
		TreasureBoxLevel: applied.TreasureBoxLevel,
	}

	// Post-commit side effects are best-effort: the committed balance change
	// is authoritative and is never rolled back from here on.
	if s.board != nil {
		if boardErr := s.board.IncrContribution(ctx, req.RoomID, req.SenderID, cost); boardErr != nil {
			log.Printf("level=warn component=gift msg=\"contribution increment failed\" room_id=%s sender_id=%s err=%v", req.RoomID, req.SenderID, boardErr)
		}
	}
	if s.producer != nil {
		evt := rabbitmq.GiftSentEvent{
			TransactionID: applied.TransactionID,
			SenderID:      req.SenderID,
			ReceiverID:    req.ReceiverID,
			RoomID:        req.RoomID,
			GiftID:        req.GiftID,
			Diamonds:      cost,
			CountryCode:   sender.CountryCode,
			Timestamp:     now,
		}
		if pubErr := s.producer.PublishGiftSent(ctx, evt); pubErr != nil {
			log.Printf("level=warn component=gift msg=\"gift event publish failed\" transaction_id=%s err=%v", applied.TransactionID, pubErr)
		}
		if cashback > 0 {
			cbEvt := rabbitmq.CashbackAwardedEvent{
				AccountID: req.SenderID,
				Diamonds:  cashback,
				Timestamp: now,
			}
			if pubErr := s.producer.PublishCashbackAwarded(ctx, cbEvt); pubErr != nil {
				log.Printf("level=warn component=gift msg=\"cashback event publish failed\" account_id=%s err=%v", req.SenderID, pubErr)
			}
		}
	}

	// Broadcasting. Per-connection ordering follows emit order here: the
	// sender sees the debit before the cashback notice, and room events land
	// after the personal balance updates.
	s.broadcaster.EmitToUser(req.SenderID, domain.EvtDiamondUpdate, domain.DiamondUpdatePayload{
		AccountID: req.SenderID,
		Diamonds:  applied.SenderDiamonds,
		Level:     applied.SenderLevel,
		XP:        applied.SenderXP.String(),
	})
	if cashback > 0 {
		s.broadcaster.EmitToUser(req.SenderID, domain.EvtCashbackNotice, domain.CashbackNoticePayload{
			AccountID: req.SenderID,
			Diamonds:  applied.SenderDiamonds,
			Cashback:  cashback,
		})
	}
	s.broadcaster.EmitToUser(req.ReceiverID, domain.EvtBeanUpdate, domain.BeanUpdatePayload{
		AccountID: req.ReceiverID,
		Beans:     applied.ReceiverBeans,
	})
	s.broadcaster.EmitToCountry(sender.CountryCode, domain.EvtGiftSent, domain.GiftSentPayload{
		SenderID:     sender.ID,
		SenderName:   sender.Name,
		ReceiverID:   receiver.ID,
		ReceiverName: receiver.Name,
		RoomID:       room.ID,
		GiftID:       gift.ID,
		GiftName:     gift.Name,
		GiftImageURL: gift.ImageURL,
		Quantity:     tier.Quantity,
		Count:        req.Count,
		TotalCost:    cost,
		CountryCode:  sender.CountryCode,
	})
	s.broadcaster.EmitToRoom(req.RoomID, domain.EvtTreasureBoxUpdate, domain.TreasureBoxPayload{
		RoomID:            req.RoomID,
		DiamondsUsedToday: applied.DiamondsUsedToday,
		TreasureBoxLevel:  applied.TreasureBoxLevel,
	})
	s.broadcaster.EmitToRoom(req.RoomID, domain.EvtGiftUpdate, domain.GiftUpdatePayload{
		RoomID:     req.RoomID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		GiftID:     req.GiftID,
		Quantity:   tier.Quantity,
	})

	return result, nil
}

// rollCashback grants a bonus with the configured probability, bounded by a
// share of the country's gift volume over the trailing window. A quiet window
// always yields zero.
func (s *Service) rollCashback(ctx context.Context, countryCode string, now time.Time) (int64, error) {
	if s.rng.Intn(100) >= s.cfg.CashbackProbabilityPct {
		return 0, nil
	}
	recentTotal, err := s.repo.SumCountryGiftVolume(ctx, countryCode, now.Add(-s.cfg.CashbackWindow))
	if err != nil {
		return 0, err
	}
	bound := int64(float64(recentTotal) * s.cfg.CashbackMaxShare)
	if bound <= 0 {
		return 0, nil
	}
	return s.rng.Int63n(bound + 1), nil
}
