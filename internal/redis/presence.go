package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func peersKey(roomID string) string {
	return "room:" + roomID + ":peers"
}

// Presence mirrors room membership into one Redis set per room so that
// dashboards can observe who is connected. The relay never reads it back.
type Presence struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresence(rdb *redis.Client, ttl time.Duration) *Presence {
	return &Presence{rdb: rdb, ttl: ttl}
}

// Join adds the participant and refreshes the set's TTL.
func (p *Presence) Join(ctx context.Context, roomID, participantID string) error {
	pipe := p.rdb.TxPipeline()
	pipe.SAdd(ctx, peersKey(roomID), participantID)
	pipe.Expire(ctx, peersKey(roomID), p.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Leave removes the participant. Redis drops the key with its last member.
func (p *Presence) Leave(ctx context.Context, roomID, participantID string) error {
	return p.rdb.SRem(ctx, peersKey(roomID), participantID).Err()
}

func (p *Presence) Members(ctx context.Context, roomID string) ([]string, error) {
	return p.rdb.SMembers(ctx, peersKey(roomID)).Result()
}
