package notifications

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Mala4505/tanbeeh-dashboard-backend/config"
	"github.com/Mala4505/tanbeeh-dashboard-backend/database"
	"github.com/Mala4505/tanbeeh-dashboard-backend/models"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// Queue item structure stored in Redis. Kept minimal: the DB write is the
// source of truth, the queue only smooths bursts. If Redis is down we fall
// back to a direct insert so a flag never silently loses its notification.
type queuedNotification struct {
	RecipientID   uint      `json:"recipient_id"`
	Message       string    `json:"message"`
	RelatedFlagID *uint     `json:"related_flag_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

const redisListKey = "notifications:queue"

// Service creates notifications with an optional Redis queue.
type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	useRedis bool
}

func NewService() *Service {
	return &Service{
		db:       database.GetDB(),
		redis:    database.GetRedisClient(),
		useRedis: config.AppConfig != nil && config.AppConfig.UseRedisNotifications && database.GetRedisClient() != nil,
	}
}

// NewServiceWith wires explicit dependencies (used by tests)
func NewServiceWith(db *gorm.DB) *Service {
	return &Service{db: db}
}

// NotifyFlag notifies a reviewer that a flag was routed to them
func (s *Service) NotifyFlag(recipientID uint, message string, flagID uint) {
	s.enqueueOrCreate(queuedNotification{
		RecipientID:   recipientID,
		Message:       message,
		RelatedFlagID: &flagID,
	})
}

// Notify delivers a plain message to one recipient
func (s *Service) Notify(recipientID uint, message string) {
	s.enqueueOrCreate(queuedNotification{RecipientID: recipientID, Message: message})
}

func (s *Service) enqueueOrCreate(n queuedNotification) {
	n.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(n)
		if err == nil {
			if err = s.redis.RPush(context.Background(), redisListKey, b).Err(); err == nil {
				return
			}
		}
		log.Printf("[notif] Redis queue failed, falling back to direct insert: %v", err)
	}

	s.createDirect(n)
}

// createDirect writes directly to DB (used by worker or fallback)
func (s *Service) createDirect(n queuedNotification) {
	notif := models.Notification{
		RecipientID:   n.RecipientID,
		Message:       n.Message,
		RelatedFlagID: n.RelatedFlagID,
		IsRead:        false,
	}
	if err := s.db.Create(&notif).Error; err != nil {
		log.Printf("[notif] Failed to save notification for user %d: %v", n.RecipientID, err)
	}
}

// StartWorker starts a background worker polling the Redis queue and
// flushing to DB
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		log.Println("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		log.Println("[notif] Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		for {
			select {
			case <-stop:
				log.Println("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, 200)
			}
		}
	}()
}

// flushBatch drains up to batchSize queued notifications into the DB.
// LRange then LTrim keeps the drain safe for moderate concurrency.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
	if err != nil || len(vals) == 0 {
		return
	}
	if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
		log.Printf("[notif] Failed to trim notification queue: %v", err)
		return
	}

	for _, v := range vals {
		var n queuedNotification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			log.Printf("[notif] Dropping malformed queue item: %v", err)
			continue
		}
		s.createDirect(n)
	}
}
