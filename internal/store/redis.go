package store

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/opssage/opssage/internal/models"
)

// IncidentChannel is the Redis channel external dashboards subscribe to for
// live incident snapshots.
const IncidentChannel = "opssage:incidents"

// RedisPublisher pushes post-mutation incident snapshots onto a Redis
// channel. Publish failures are logged and dropped; the feed is best-effort
// and must never fail a store mutation.
type RedisPublisher struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

func NewRedisPublisher(client *redis.Client, log *zap.SugaredLogger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log}
}

func (p *RedisPublisher) PublishIncident(ctx context.Context, incident *models.Incident) {
	payload, err := json.Marshal(incident)
	if err != nil {
		p.log.Errorw("marshal incident snapshot", "incident_id", incident.IncidentID, "error", err)
		return
	}
	if err := p.client.Publish(ctx, IncidentChannel, payload).Err(); err != nil {
		p.log.Warnw("publish incident snapshot", "incident_id", incident.IncidentID, "error", err)
	}
}
