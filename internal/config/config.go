package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jengzang/permit-map-backend-go/internal/aggregation"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string

	RedisAddr   string // Empty disables the geography cache
	GeoCacheTTL time.Duration

	LOD             aggregation.Options
	PointFetchLimit int // Server-side cap on the point list
	GeoFetchLimit   int // Cap on the geography feed used by map views

	RateLimitRPS   float64
	RateLimitBurst int

	SessionTTL time.Duration // Idle map sessions expire after this
}

// Load 加载配置
// A .env file in the working directory is read first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env")
	}

	lod := aggregation.DefaultOptions()
	cfg := &Config{
		Port:            getEnv("PORT", ":8080"),
		DBPath:          getEnv("DB_PATH", "./data/permits.db"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		GeoCacheTTL:     10 * time.Minute,
		LOD:             lod,
		PointFetchLimit: 5000,
		GeoFetchLimit:   10000,
		RateLimitRPS:    20,
		RateLimitBurst:  40,
		SessionTTL:      30 * time.Minute,
	}

	var err error
	if cfg.GeoCacheTTL, err = getDuration("GEO_CACHE_TTL", cfg.GeoCacheTTL); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", cfg.SessionTTL); err != nil {
		return nil, err
	}
	if cfg.LOD.ClusterZoom, err = getFloat("LOD_CLUSTER_ZOOM", lod.ClusterZoom); err != nil {
		return nil, err
	}
	if cfg.LOD.IndividualZoom, err = getFloat("LOD_INDIVIDUAL_ZOOM", lod.IndividualZoom); err != nil {
		return nil, err
	}
	if cfg.LOD.MaxMarkers, err = getInt("LOD_MAX_MARKERS", lod.MaxMarkers); err != nil {
		return nil, err
	}
	if cfg.LOD.HullStride, err = getInt("HULL_STRIDE", lod.HullStride); err != nil {
		return nil, err
	}
	if cfg.PointFetchLimit, err = getInt("POINT_FETCH_LIMIT", cfg.PointFetchLimit); err != nil {
		return nil, err
	}
	if cfg.GeoFetchLimit, err = getInt("GEO_FETCH_LIMIT", cfg.GeoFetchLimit); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst); err != nil {
		return nil, err
	}
	if raw := os.Getenv("GRID_CELL_STEPS"); raw != "" {
		if cfg.LOD.GridSteps, err = ParseGridSteps(raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects inconsistent settings
func (c *Config) Validate() error {
	if err := c.LOD.Validate(); err != nil {
		return fmt.Errorf("invalid LOD config: %w", err)
	}
	if c.PointFetchLimit <= 0 {
		return fmt.Errorf("POINT_FETCH_LIMIT must be positive, got %d", c.PointFetchLimit)
	}
	if c.GeoFetchLimit <= 0 {
		return fmt.Errorf("GEO_FETCH_LIMIT must be positive, got %d", c.GeoFetchLimit)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit must be positive, got %.2f/s burst %d", c.RateLimitRPS, c.RateLimitBurst)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %v", c.SessionTTL)
	}
	return nil
}

// ParseGridSteps parses "minZoom:cellSize" pairs, e.g. "0:0.05,11:0.02,12:0.01".
// Steps are sorted by zoom; monotonicity is checked by Validate.
func ParseGridSteps(raw string) ([]aggregation.GridStep, error) {
	var steps []aggregation.GridStep
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		zoomStr, sizeStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid grid step %q: expected zoom:cellSize", part)
		}
		zoom, err := strconv.ParseFloat(strings.TrimSpace(zoomStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid grid step zoom %q: %w", zoomStr, err)
		}
		size, err := strconv.ParseFloat(strings.TrimSpace(sizeStr), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid grid step cell size %q: %w", sizeStr, err)
		}
		steps = append(steps, aggregation.GridStep{MinZoom: zoom, CellSize: size})
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("no grid steps in %q", raw)
	}
	aggregation.SortGridSteps(steps)
	return steps, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
