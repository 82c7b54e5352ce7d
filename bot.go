package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// BotState is the AI state machine tag
type BotState int

const (
	BotPatrol BotState = iota
	BotHunt
	BotCombat
	BotFlee
)

func (s BotState) String() string {
	switch s {
	case BotPatrol:
		return "patrol"
	case BotHunt:
		return "hunt"
	case BotCombat:
		return "combat"
	case BotFlee:
		return "flee"
	}
	return "unknown"
}

var botCallsigns = []string{
	"Agent_Alpha", "Shadow_Ops", "Steel_Wolf", "Ghost_Recon", "Viper_Strike",
	"Phoenix_Rising", "Thunder_Bolt", "Razor_Edge", "Night_Hunter", "Storm_Breaker",
	"Cyber_Ninja", "Iron_Hawk", "Frost_Bite", "Blaze_Runner", "Silent_Death",
}

// BotBrain is the AI control block carried by bot entities. TargetID is a
// weak reference: it is looked up in the room every decision.
type BotBrain struct {
	State       BotState
	TargetID    string
	Tier        BotTier
	Accuracy    float64
	Waypoints   []Vec2
	WaypointIdx int
	LastKnown   Vec2 // where TargetID was last seen
	StuckFor    time.Duration
	NextShot    time.Time

	lastSeenID  string
	windowStart Vec2
	strafeDir   float64
	strafeUntil time.Time
}

// BotIntent is what a bot wants to do this tick, in the same terms as a
// human's input
type BotIntent struct {
	MoveX, MoveY float64
	Angle        float64
	Fire         bool
	Reload       bool
}

// NewBotBrain rolls accuracy within the tier range and lays out a patrol route
func NewBotBrain(tier BotTier, x, y float64, rng *rand.Rand, cfg *Config) *BotBrain {
	b := &BotBrain{
		State:       BotPatrol,
		Tier:        tier,
		Accuracy:    tier.AccuracyMin + rng.Float64()*(tier.AccuracyMax-tier.AccuracyMin),
		strafeDir:   1,
		windowStart: Vec2{x, y},
	}
	if rng.IntN(2) == 0 {
		b.strafeDir = -1
	}
	b.Waypoints = generateWaypoints(rng, cfg)
	return b
}

// pickTier draws a difficulty tier by weight
func pickTier(rng *rand.Rand, tiers [3]BotTier) BotTier {
	total := 0
	for _, t := range tiers {
		total += t.Weight
	}
	if total <= 0 {
		return tiers[1]
	}
	n := rng.IntN(total)
	for _, t := range tiers {
		if n < t.Weight {
			return t
		}
		n -= t.Weight
	}
	return tiers[len(tiers)-1]
}

// generateWaypoints returns 3 to 5 open points inside the map margins
func generateWaypoints(rng *rand.Rand, cfg *Config) []Vec2 {
	n := 3 + rng.IntN(3)
	m := cfg.Bot.WaypointMargin
	pts := make([]Vec2, 0, n)
	for len(pts) < n {
		var p Vec2
		for attempt := 0; attempt < 10; attempt++ {
			p = Vec2{
				X: m + rng.Float64()*(cfg.MapWidth-2*m),
				Y: m + rng.Float64()*(cfg.MapHeight-2*m),
			}
			if !arena.BlocksBox(BoxAround(p.X, p.Y, cfg.EntityRadius)) {
				break
			}
		}
		pts = append(pts, p)
	}
	return pts
}

// Reset puts the brain back on patrol with a new route, used on respawn
func (b *BotBrain) Reset(x, y float64, rng *rand.Rand, cfg *Config) {
	b.State = BotPatrol
	b.TargetID = ""
	b.lastSeenID = ""
	b.StuckFor = 0
	b.windowStart = Vec2{x, y}
	b.Waypoints = generateWaypoints(rng, cfg)
	b.WaypointIdx = 0
}

// transition advances the state machine given the nearest enemy
func (b *BotBrain) transition(enemy *Entity, dist, healthFrac float64, cfg *BotConfig) {
	switch b.State {
	case BotPatrol:
		if enemy != nil && dist < cfg.DetectionRange {
			b.State = BotHunt
		}
	case BotHunt:
		if enemy == nil || dist > 1.5*cfg.DetectionRange {
			b.State = BotPatrol
		} else if dist < cfg.CombatRange {
			b.State = BotCombat
		}
	case BotCombat:
		if enemy == nil {
			b.State = BotPatrol
		} else if healthFrac < cfg.FleeHealthFrac && dist < cfg.FleeRange {
			b.State = BotFlee
		} else if dist > 1.5*cfg.CombatRange {
			b.State = BotHunt
		}
	case BotFlee:
		if enemy == nil || healthFrac > cfg.RecoverHealthFrac || dist > cfg.DetectionRange {
			b.State = BotPatrol
		}
	}
}

// Think picks this tick's intent for self
func (b *BotBrain) Think(self *Entity, entities map[string]*Entity, now time.Time, rng *rand.Rand, cfg *Config) BotIntent {
	in := BotIntent{Angle: self.Angle}
	if !self.Alive() {
		return in
	}
	bc := &cfg.Bot

	enemy, dist := nearestLiving(self, entities)
	if enemy != nil {
		b.TargetID = enemy.ID
	} else {
		b.TargetID = ""
	}
	healthFrac := Clamp(float64(self.Health)/float64(self.Loadout.MaxHealth), 0, 1)
	b.transition(enemy, dist, healthFrac, bc)

	switch b.State {
	case BotPatrol:
		in.MoveX, in.MoveY = b.patrol(self, rng, cfg)
		if in.MoveX != 0 || in.MoveY != 0 {
			in.Angle = math.Atan2(in.MoveY, in.MoveX)
		}
	case BotHunt:
		if b.sight(self, enemy, bc) {
			lead := dist / self.Loadout.BulletSpeed
			px := enemy.X + enemy.VX*lead
			py := enemy.Y + enemy.VY*lead
			in.MoveX, in.MoveY = unit(px-self.X, py-self.Y)
			in.Angle = math.Atan2(enemy.Y-self.Y, enemy.X-self.X)
			break
		}
		// out of sight: head for the last sighting, then pick up the trail
		if Distance(self.X, self.Y, b.LastKnown.X, b.LastKnown.Y) < bc.WaypointReach {
			b.LastKnown = Vec2{enemy.X, enemy.Y}
		}
		in.MoveX, in.MoveY = unit(b.LastKnown.X-self.X, b.LastKnown.Y-self.Y)
		if in.MoveX != 0 || in.MoveY != 0 {
			in.Angle = math.Atan2(in.MoveY, in.MoveX)
		}
	case BotCombat:
		visible := b.sight(self, enemy, bc)
		in.MoveX, in.MoveY = b.strafe(self, enemy, dist, now, rng, bc)
		in.Angle = b.aim(self, enemy, rng, bc)
		in.Fire = visible && dist <= bc.ShootRange && !now.Before(b.NextShot)
	case BotFlee:
		in.MoveX, in.MoveY = unit(self.X-enemy.X, self.Y-enemy.Y)
		in.Angle = math.Atan2(in.MoveY, in.MoveX)
	}

	if self.Reload == ReloadNone && self.Ammo <= bc.AutoReloadAt && self.Reserve > 0 {
		in.Reload = true
	}
	return in
}

// sight reports whether enemy is in line of sight and records the sighting.
// A freshly picked target is recorded where it stands.
func (b *BotBrain) sight(self, enemy *Entity, cfg *BotConfig) bool {
	visible := LineOfSight(self.X, self.Y, enemy.X, enemy.Y, cfg.LOSSamples)
	if visible || b.lastSeenID != enemy.ID {
		b.LastKnown = Vec2{enemy.X, enemy.Y}
		b.lastSeenID = enemy.ID
	}
	return visible
}

// ShotFired starts the tier cooldown after a bullet actually left the gun
func (b *BotBrain) ShotFired(now time.Time, rng *rand.Rand) {
	b.NextShot = now.Add(fireCooldown(b.Tier, rng))
}

func (b *BotBrain) patrol(self *Entity, rng *rand.Rand, cfg *Config) (float64, float64) {
	if len(b.Waypoints) == 0 {
		b.Waypoints = generateWaypoints(rng, cfg)
		b.WaypointIdx = 0
	}
	if b.WaypointIdx >= len(b.Waypoints) {
		b.WaypointIdx = 0
	}
	wp := b.Waypoints[b.WaypointIdx]
	if Distance(self.X, self.Y, wp.X, wp.Y) < cfg.Bot.WaypointReach {
		b.WaypointIdx = (b.WaypointIdx + 1) % len(b.Waypoints)
		wp = b.Waypoints[b.WaypointIdx]
	}
	dx, dy := unit(wp.X-self.X, wp.Y-self.Y)
	return dx * 0.5, dy * 0.5
}

// strafe circles the enemy while holding a band of the combat range
func (b *BotBrain) strafe(self, enemy *Entity, dist float64, now time.Time, rng *rand.Rand, cfg *BotConfig) (float64, float64) {
	if now.After(b.strafeUntil) {
		if !b.strafeUntil.IsZero() {
			b.strafeDir = -b.strafeDir
		}
		jitter := time.Duration(rng.Int64N(int64(cfg.StrafeFlip) + 1))
		b.strafeUntil = now.Add(cfg.StrafeFlip/2 + jitter)
	}
	tx, ty := unit(enemy.X-self.X, enemy.Y-self.Y)
	radial := 0.0
	switch {
	case dist > 0.7*cfg.CombatRange:
		radial = 0.5
	case dist < 0.4*cfg.CombatRange:
		radial = -0.5
	}
	mx := -ty*b.strafeDir*0.7 + tx*radial
	my := tx*b.strafeDir*0.7 + ty*radial
	return mx, my
}

// aim faces the enemy with an error that shrinks as accuracy grows
func (b *BotBrain) aim(self, enemy *Entity, rng *rand.Rand, cfg *BotConfig) float64 {
	base := math.Atan2(enemy.Y-self.Y, enemy.X-self.X)
	spread := (1 - b.Accuracy) * (rng.Float64() - 0.5) * cfg.AimErrorScale * 2
	return NormalizeAngle(base + spread)
}

// CheckStuck measures progress over a rolling StuckAfter window and kicks a
// bot that kept pushing the whole window yet covered less than StuckEpsilon.
// speed is the commanded speed before collision resolution. Returns true
// when the bot was kicked.
func (b *BotBrain) CheckStuck(self *Entity, speed float64, tick time.Duration, rng *rand.Rand, cfg *Config) bool {
	if speed <= 0.1 {
		b.StuckFor = 0
		b.windowStart = Vec2{self.X, self.Y}
		return false
	}
	b.StuckFor += tick
	if b.StuckFor < cfg.Bot.StuckAfter {
		return false
	}
	moved := Distance(b.windowStart.X, b.windowStart.Y, self.X, self.Y)
	b.StuckFor = 0
	b.windowStart = Vec2{self.X, self.Y}
	if moved >= cfg.Bot.StuckEpsilon {
		return false
	}

	a := rng.Float64() * 2 * math.Pi
	self.VX += math.Cos(a) * cfg.Bot.UnstuckImpulse
	self.VY += math.Sin(a) * cfg.Bot.UnstuckImpulse
	b.Waypoints = generateWaypoints(rng, cfg)
	b.WaypointIdx = 0
	return true
}

func fireCooldown(tier BotTier, rng *rand.Rand) time.Duration {
	span := tier.CooldownMax - tier.CooldownMin
	if span <= 0 {
		return tier.CooldownMin
	}
	return tier.CooldownMin + time.Duration(rng.Int64N(int64(span)+1))
}

// botName hands out callsigns in order, suffixing once the pool runs dry
func botName(used map[string]bool, rng *rand.Rand) string {
	for _, n := range botCallsigns {
		if !used[n] {
			used[n] = true
			return n
		}
	}
	for {
		n := fmt.Sprintf("%s_%03d", botCallsigns[rng.IntN(len(botCallsigns))], rng.IntN(1000))
		if !used[n] {
			used[n] = true
			return n
		}
	}
}

func unit(dx, dy float64) (float64, float64) {
	d := math.Hypot(dx, dy)
	if d == 0 {
		return 0, 0
	}
	return dx / d, dy / d
}
