package main

import (
	"fmt"
	"time"
)

// BotTier holds the per-difficulty bot tuning
type BotTier struct {
	Name        string
	Weight      int // relative pick weight during backfill
	AccuracyMin float64
	AccuracyMax float64
	CooldownMin time.Duration
	CooldownMax time.Duration
}

// BotConfig holds the AI thresholds. All distances are in map units.
type BotConfig struct {
	DetectionRange    float64
	CombatRange       float64
	FleeRange         float64
	ShootRange        float64
	FleeHealthFrac    float64 // combat -> flee below this fraction of max health
	RecoverHealthFrac float64 // flee -> patrol above this fraction
	WaypointReach     float64
	WaypointMargin    float64
	LOSSamples        int
	AimErrorScale     float64 // radians of spread at accuracy 0
	StrafeFlip        time.Duration
	StuckEpsilon      float64 // least progress expected over StuckAfter while pushing
	StuckAfter        time.Duration
	UnstuckImpulse    float64
	SeparationDist    float64
	SeparationForce   float64
	AutoReloadAt      int // bots reload on their own at or below this magazine size
	Tiers             [3]BotTier
}

// Config holds every tunable of the match simulation
type Config struct {
	Capacity           int
	MatchLength        time.Duration
	MatchmakingTimeout time.Duration
	TickInterval       time.Duration
	FullSyncInterval   time.Duration
	RespawnDelay       time.Duration
	CleanupDelay       time.Duration
	MaxRooms           int

	MapWidth        float64
	MapHeight       float64
	EntityRadius    float64 // collision half-extent used for bounds, obstacles and hits
	SpawnMargin     float64 // extra clearance around a spawn box
	SpawnSpacing    float64 // minimum distance between a spawn and a living entity
	SpawnAttempts   int
	MaxMoveDistance float64 // anti-cheat displacement cap per accepted move
	HitTolerance    float64 // slack allowed on client-reported hits

	Loadout    Loadout
	KillScore  int
	MaxBullets int
	BinarySync bool

	Bot BotConfig
}

// DefaultConfig returns the tuning used in production
func DefaultConfig() Config {
	return Config{
		Capacity:           6,
		MatchLength:        60 * time.Second,
		MatchmakingTimeout: 30 * time.Second,
		TickInterval:       33 * time.Millisecond,
		FullSyncInterval:   time.Second,
		RespawnDelay:       3 * time.Second,
		CleanupDelay:       30 * time.Second,
		MaxRooms:           100,

		MapWidth:        1200,
		MapHeight:       800,
		EntityRadius:    25,
		SpawnMargin:     15,
		SpawnSpacing:    80,
		SpawnAttempts:   10,
		MaxMoveDistance: 15,
		HitTolerance:    15,

		Loadout:    DefaultLoadout(),
		KillScore:  100,
		MaxBullets: 500,
		BinarySync: true,

		Bot: BotConfig{
			DetectionRange:    190,
			CombatRange:       120,
			FleeRange:         80,
			ShootRange:        150,
			FleeHealthFrac:    0.3,
			RecoverHealthFrac: 0.6,
			WaypointReach:     30,
			WaypointMargin:    50,
			LOSSamples:        20,
			AimErrorScale:     0.3,
			StrafeFlip:        1500 * time.Millisecond,
			StuckEpsilon:      10,
			StuckAfter:        time.Second,
			UnstuckImpulse:    1.5,
			SeparationDist:    40,
			SeparationForce:   0.5,
			AutoReloadAt:      5,
			Tiers: [3]BotTier{
				{Name: "easy", Weight: 30, AccuracyMin: 0.6, AccuracyMax: 0.8,
					CooldownMin: 300 * time.Millisecond, CooldownMax: 600 * time.Millisecond},
				{Name: "medium", Weight: 50, AccuracyMin: 0.75, AccuracyMax: 0.9,
					CooldownMin: 200 * time.Millisecond, CooldownMax: 400 * time.Millisecond},
				{Name: "hard", Weight: 20, AccuracyMin: 0.85, AccuracyMax: 0.95,
					CooldownMin: 150 * time.Millisecond, CooldownMax: 300 * time.Millisecond},
			},
		},
	}
}

// Validate rejects configurations the simulation cannot run with
func (c Config) Validate() error {
	switch {
	case c.Capacity < 2:
		return fmt.Errorf("capacity must be at least 2, got %d", c.Capacity)
	case c.TickInterval <= 0:
		return fmt.Errorf("tick interval must be positive")
	case c.FullSyncInterval < c.TickInterval:
		return fmt.Errorf("full sync interval %v is shorter than a tick", c.FullSyncInterval)
	case c.MatchLength <= 0 || c.MatchmakingTimeout <= 0:
		return fmt.Errorf("match length and matchmaking timeout must be positive")
	case c.RespawnDelay < 0 || c.CleanupDelay < 0:
		return fmt.Errorf("respawn and cleanup delays must not be negative")
	case c.MapWidth <= 2*c.EntityRadius || c.MapHeight <= 2*c.EntityRadius:
		return fmt.Errorf("map %vx%v too small for entity radius %v", c.MapWidth, c.MapHeight, c.EntityRadius)
	case c.MaxMoveDistance <= 0:
		return fmt.Errorf("max move distance must be positive")
	case c.MaxRooms < 1:
		return fmt.Errorf("max rooms must be at least 1")
	}
	return c.Loadout.validate()
}
