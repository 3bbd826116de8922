package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/internal/service"
)

const locationUnitsKey = "locations:units"

// upsertLocation записывает точку, только если она новее сохранённой.
// observed_at хранится в микросекундах: так число точно представимо в Lua.
var upsertLocation = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'observed_at')
if current and tonumber(current) >= tonumber(ARGV[3]) then
	return 0
end
redis.call('HSET', KEYS[1], 'lat', ARGV[1], 'lon', ARGV[2], 'observed_at', ARGV[3])
redis.call('SADD', KEYS[2], ARGV[4])
return 1
`)

// LocationRepository хранит последние точки единиц в Redis: hash на единицу
// и множество известных единиц
type LocationRepository struct {
	redisClient *redis.Client
}

func NewLocationRepository(redisClient *redis.Client) service.LocationStore {
	return &LocationRepository{redisClient: redisClient}
}

func locationKey(unitID uuid.UUID) string {
	return fmt.Sprintf("location:%s", unitID.String())
}

func (r *LocationRepository) Upsert(ctx context.Context, sample models.LocationSample) error {
	applied, err := upsertLocation.Run(ctx, r.redisClient,
		[]string{locationKey(sample.UnitID), locationUnitsKey},
		strconv.FormatFloat(sample.Latitude, 'f', -1, 64),
		strconv.FormatFloat(sample.Longitude, 'f', -1, 64),
		sample.ObservedAt.UnixMicro(),
		sample.UnitID.String(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to upsert location: %w", err)
	}
	if applied == 0 {
		return fmt.Errorf("%w: unit %s already has a newer sample", models.ErrStaleUpdate, sample.UnitID)
	}
	return nil
}

func (r *LocationRepository) Get(ctx context.Context, unitID uuid.UUID) (*models.LocationSample, error) {
	fields, err := r.redisClient.HGetAll(ctx, locationKey(unitID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no location for unit %s", models.ErrNotFound, unitID)
	}
	return parseLocation(unitID, fields)
}

// List возвращает точки всех единиц, когда-либо сообщавших местоположение
func (r *LocationRepository) List(ctx context.Context) ([]*models.LocationSample, error) {
	members, err := r.redisClient.SMembers(ctx, locationUnitsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list location units: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	cmds := make([]*redis.MapStringStringCmd, 0, len(members))
	pipe := r.redisClient.Pipeline()
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
		cmds = append(cmds, pipe.HGetAll(ctx, locationKey(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read locations: %w", err)
	}

	samples := make([]*models.LocationSample, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		sample, err := parseLocation(ids[i], fields)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].UnitID.String() < samples[j].UnitID.String() })
	return samples, nil
}

func parseLocation(unitID uuid.UUID, fields map[string]string) (*models.LocationSample, error) {
	lat, err := strconv.ParseFloat(fields["lat"], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude for unit %s: %w", unitID, err)
	}
	lon, err := strconv.ParseFloat(fields["lon"], 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude for unit %s: %w", unitID, err)
	}
	micros, err := strconv.ParseInt(fields["observed_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse observed_at for unit %s: %w", unitID, err)
	}
	return &models.LocationSample{
		UnitID:     unitID,
		Latitude:   lat,
		Longitude:  lon,
		ObservedAt: time.UnixMicro(micros).UTC(),
	}, nil
}
