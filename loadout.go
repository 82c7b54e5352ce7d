package main

import (
	"fmt"
	"time"
)

// Loadout holds the per-entity combat and movement caps. Every entity in a
// room gets a copy at creation time.
type Loadout struct {
	MaxHealth      int
	MaxAmmo        int
	StartReserve   int
	FireRate       time.Duration // minimum gap between shots
	ReloadTime     time.Duration
	AutoReloadTime time.Duration
	MaxSpeed       float64 // units per tick
	Accel          float64 // units per tick per tick at full input
	Friction       float64 // velocity multiplier per tick when coasting
	BulletSpeed    float64 // units per tick
	BulletDamage   int
	BulletLife     time.Duration
	MuzzleOffset   float64 // bullet spawn distance from the entity centre
}

// DefaultLoadout returns the standard rifle loadout
func DefaultLoadout() Loadout {
	return Loadout{
		MaxHealth:      100,
		MaxAmmo:        30,
		StartReserve:   120,
		FireRate:       100 * time.Millisecond,
		ReloadTime:     2500 * time.Millisecond,
		AutoReloadTime: 3000 * time.Millisecond,
		MaxSpeed:       3,
		Accel:          0.4,
		Friction:       0.85,
		BulletSpeed:    15,
		BulletDamage:   25,
		BulletLife:     time.Second,
		MuzzleOffset:   25,
	}
}

func (l Loadout) validate() error {
	switch {
	case l.MaxHealth <= 0:
		return fmt.Errorf("max health must be positive")
	case l.MaxAmmo <= 0 || l.StartReserve < 0:
		return fmt.Errorf("invalid ammo caps %d/%d", l.MaxAmmo, l.StartReserve)
	case l.FireRate < 0 || l.ReloadTime < 0 || l.AutoReloadTime < 0:
		return fmt.Errorf("weapon timings must not be negative")
	case l.MaxSpeed <= 0 || l.Accel <= 0:
		return fmt.Errorf("speed and acceleration must be positive")
	case l.Friction <= 0 || l.Friction > 1:
		return fmt.Errorf("friction must be in (0, 1], got %v", l.Friction)
	case l.BulletSpeed <= 0 || l.BulletDamage <= 0 || l.BulletLife <= 0:
		return fmt.Errorf("bullet speed, damage and lifetime must be positive")
	}
	return nil
}
