package main

import (
	"math"
	"time"
)

// Bullet is an in-flight projectile. OwnerID is resolved against the room's
// entity table on use and may no longer exist.
type Bullet struct {
	ID      string
	OwnerID string
	X, Y    float64
	VX, VY  float64
	Damage  int
	Life    time.Duration
}

// HitRequest asks the room to resolve damage for a bullet that reached an entity
type HitRequest struct {
	BulletID string
	OwnerID  string
	TargetID string
	Damage   int
}

// NewBullet spawns a bullet at the shooter's muzzle along its facing angle
func NewBullet(owner *Entity) *Bullet {
	lo := owner.Loadout
	cos, sin := math.Cos(owner.Angle), math.Sin(owner.Angle)
	return &Bullet{
		ID:      GenerateID(4),
		OwnerID: owner.ID,
		X:       owner.X + cos*lo.MuzzleOffset,
		Y:       owner.Y + sin*lo.MuzzleOffset,
		VX:      cos * lo.BulletSpeed,
		VY:      sin * lo.BulletSpeed,
		Damage:  lo.BulletDamage,
		Life:    lo.BulletLife,
	}
}

// advanceBullets moves every bullet one tick and returns the survivors and
// the hits to resolve. A bullet that meets any removal condition during this
// tick is dropped from the returned slice.
func advanceBullets(bullets []*Bullet, entities map[string]*Entity, tick time.Duration, cfg *Config) ([]*Bullet, []HitRequest) {
	var hits []HitRequest
	alive := bullets[:0]
	for _, b := range bullets {
		b.X += b.VX
		b.Y += b.VY
		b.Life -= tick
		if b.Life <= 0 {
			continue
		}
		if b.X < 0 || b.X > cfg.MapWidth || b.Y < 0 || b.Y > cfg.MapHeight {
			continue
		}
		if arena.BlocksPoint(b.X, b.Y) {
			continue
		}
		if target := bulletTarget(b, entities, cfg.EntityRadius); target != nil {
			hits = append(hits, HitRequest{
				BulletID: b.ID,
				OwnerID:  b.OwnerID,
				TargetID: target.ID,
				Damage:   b.Damage,
			})
			continue
		}
		alive = append(alive, b)
	}
	for i := len(alive); i < len(bullets); i++ {
		bullets[i] = nil
	}
	return alive, hits
}

// bulletTarget returns the closest living non-owner entity within radius of b
func bulletTarget(b *Bullet, entities map[string]*Entity, radius float64) *Entity {
	var best *Entity
	bestDist := radius
	for _, e := range entities {
		if e.ID == b.OwnerID || !e.Alive() {
			continue
		}
		if d := Distance(b.X, b.Y, e.X, e.Y); d <= bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

// ToState converts to protocol state
func (b *Bullet) ToState() BulletState {
	return BulletState{
		ID:      b.ID,
		OwnerID: b.OwnerID,
		X:       round1(b.X),
		Y:       round1(b.Y),
		VX:      round2(b.VX),
		VY:      round2(b.VY),
		Damage:  b.Damage,
		Life:    b.Life.Milliseconds(),
	}
}
