package drivers

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/ride-hailing/internal/models"
)

// RedisRegistry implements Registry on Redis GEO commands, so multiple API
// and consumer processes share one live view of driver presence.
type RedisRegistry struct {
	client *redis.Client
	geoKey string
}

func NewRedisRegistry(addr, password, geoKey string) *RedisRegistry {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisRegistry{client: c, geoKey: geoKey}
}

func (r *RedisRegistry) UpdateLocation(ctx context.Context, driverID string, c models.Coord) error {
	if _, err := r.client.GeoAdd(ctx, r.geoKey, &redis.GeoLocation{
		Longitude: c.Lon, Latitude: c.Lat, Name: driverID,
	}).Result(); err != nil {
		return err
	}
	return r.client.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"updated": time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisRegistry) SetAvailability(ctx context.Context, driverID string, available bool) error {
	return r.client.HSet(ctx, metaKey(driverID), map[string]interface{}{
		"available": strconv.FormatBool(available),
		"updated":   time.Now().Format(time.RFC3339),
	}).Err()
}

func (r *RedisRegistry) Location(ctx context.Context, driverID string) (models.Coord, bool) {
	pos, err := r.client.GeoPos(ctx, r.geoKey, driverID).Result()
	if err != nil || len(pos) == 0 || pos[0] == nil {
		return models.Coord{}, false
	}
	return models.Coord{Lat: pos[0].Latitude, Lon: pos[0].Longitude}, true
}

func metaKey(id string) string { return "driver:meta:" + id }
