package main

import (
	"math"
	"time"
)

// ReloadKind tracks which reload, if any, is in progress
type ReloadKind int

const (
	ReloadNone ReloadKind = iota
	ReloadManual
	ReloadAuto
)

// Entity is a combatant in a room. Humans and bots share this type; a bot
// carries a non-nil Brain.
type Entity struct {
	ID     string
	Name   string
	X, Y   float64
	VX, VY float64
	Angle  float64

	Health  int
	Ammo    int
	Reserve int
	Kills   int
	Deaths  int
	Score   int

	LastShot    time.Time
	Reload      ReloadKind
	ReloadStart time.Time

	Loadout Loadout
	Brain   *BotBrain
}

// NewEntity creates a full-health entity at the given position
func NewEntity(id, name string, lo Loadout, x, y float64) *Entity {
	return &Entity{
		ID:      id,
		Name:    name,
		X:       x,
		Y:       y,
		Health:  lo.MaxHealth,
		Ammo:    lo.MaxAmmo,
		Reserve: lo.StartReserve,
		Loadout: lo,
	}
}

// IsBot reports whether the entity is AI-controlled
func (e *Entity) IsBot() bool {
	return e.Brain != nil
}

// Alive reports whether the entity has health left
func (e *Entity) Alive() bool {
	return e.Health > 0
}

// ApplyMovementIntent turns a normalized input direction into acceleration.
// Input longer than 1 is scaled down; the resulting speed is capped.
func (e *Entity) ApplyMovementIntent(dx, dy float64) {
	if !e.Alive() {
		return
	}
	if math.IsNaN(dx) || math.IsNaN(dy) {
		return
	}
	if mag := math.Hypot(dx, dy); mag > 1 {
		dx /= mag
		dy /= mag
	}
	e.VX += dx * e.Loadout.Accel
	e.VY += dy * e.Loadout.Accel
	if speed := math.Hypot(e.VX, e.VY); speed > e.Loadout.MaxSpeed {
		scale := e.Loadout.MaxSpeed / speed
		e.VX *= scale
		e.VY *= scale
	}
}

// Coast applies friction and zeroes out residual drift
func (e *Entity) Coast() {
	e.VX *= e.Loadout.Friction
	e.VY *= e.Loadout.Friction
	if math.Abs(e.VX) < 0.1 {
		e.VX = 0
	}
	if math.Abs(e.VY) < 0.1 {
		e.VY = 0
	}
}

// CanShoot reports whether a shot fired at now would be accepted
func (e *Entity) CanShoot(now time.Time) bool {
	if !e.Alive() || e.Reload != ReloadNone || e.Ammo <= 0 {
		return false
	}
	return e.LastShot.IsZero() || now.Sub(e.LastShot) >= e.Loadout.FireRate
}

// Shoot fires one round along the facing angle. Returns nil when the shot is
// not allowed. Emptying the magazine with reserve left starts an auto-reload.
func (e *Entity) Shoot(now time.Time) *Bullet {
	if !e.CanShoot(now) {
		return nil
	}
	e.Ammo--
	e.LastShot = now
	b := NewBullet(e)
	if e.Ammo == 0 && e.Reserve > 0 {
		e.Reload = ReloadAuto
		e.ReloadStart = now
	}
	return b
}

// StartReload begins a manual reload. Returns false if nothing changed.
func (e *Entity) StartReload(now time.Time) bool {
	if !e.Alive() || e.Reload != ReloadNone {
		return false
	}
	if e.Reserve <= 0 || e.Ammo >= e.Loadout.MaxAmmo {
		return false
	}
	e.Reload = ReloadManual
	e.ReloadStart = now
	return true
}

// CompleteReload finishes a manual reload
func (e *Entity) CompleteReload() bool {
	if e.Reload != ReloadManual {
		return false
	}
	e.refill()
	return true
}

// CompleteAutoReload finishes an auto-reload
func (e *Entity) CompleteAutoReload() bool {
	if e.Reload != ReloadAuto {
		return false
	}
	e.refill()
	return true
}

func (e *Entity) refill() {
	needed := e.Loadout.MaxAmmo - e.Ammo
	if needed > e.Reserve {
		needed = e.Reserve
	}
	if needed > 0 {
		e.Ammo += needed
		e.Reserve -= needed
	}
	e.Reload = ReloadNone
	e.ReloadStart = time.Time{}
}

// UpdateReload completes a pending reload whose duration has elapsed.
// Returns true when the magazine changed.
func (e *Entity) UpdateReload(now time.Time) bool {
	if !e.Alive() {
		return false
	}
	elapsed := now.Sub(e.ReloadStart)
	switch e.Reload {
	case ReloadManual:
		if elapsed >= e.Loadout.ReloadTime {
			return e.CompleteReload()
		}
	case ReloadAuto:
		if elapsed >= e.Loadout.AutoReloadTime {
			return e.CompleteAutoReload()
		}
	}
	return false
}

// TakeDamage subtracts health and reports whether this hit killed the
// entity. The attacker, when present and distinct, is credited with the kill.
func (e *Entity) TakeDamage(amount int, attacker *Entity, killScore int) bool {
	if !e.Alive() || amount <= 0 {
		return false
	}
	e.Health -= amount
	if e.Health > 0 {
		return false
	}
	e.Health = 0
	e.Deaths++
	e.VX, e.VY = 0, 0
	e.Reload = ReloadNone
	e.ReloadStart = time.Time{}
	if attacker != nil && attacker != e {
		attacker.Kills++
		attacker.Score += killScore
	}
	return true
}

// Respawn restores the entity at the given position
func (e *Entity) Respawn(x, y float64) {
	e.X, e.Y = x, y
	e.VX, e.VY = 0, 0
	e.Health = e.Loadout.MaxHealth
	e.Ammo = e.Loadout.MaxAmmo
	e.Reserve = e.Loadout.StartReserve
	e.Reload = ReloadNone
	e.ReloadStart = time.Time{}
	e.LastShot = time.Time{}
}

// ToState converts to protocol state
func (e *Entity) ToState() EntityState {
	s := EntityState{
		ID:        e.ID,
		Name:      e.Name,
		X:         round1(e.X),
		Y:         round1(e.Y),
		VX:        round1(e.VX),
		VY:        round1(e.VY),
		Angle:     round2(e.Angle),
		Health:    e.Health,
		MaxHealth: e.Loadout.MaxHealth,
		Ammo:      e.Ammo,
		Reserve:   e.Reserve,
		Kills:     e.Kills,
		Deaths:    e.Deaths,
		Score:     e.Score,
		IsBot:     e.IsBot(),
		Reloading: e.Reload != ReloadNone,
	}
	if e.Brain != nil {
		s.Difficulty = e.Brain.Tier.Name
	}
	return s
}
