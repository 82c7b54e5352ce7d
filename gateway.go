package main

import "math"

// moveVerdict is the outcome of validating a proposed position
type moveVerdict int

const (
	moveOK moveVerdict = iota
	moveNotFinite
	moveOutOfBounds
	moveBlocked
	moveTooFar
)

func (v moveVerdict) String() string {
	switch v {
	case moveOK:
		return "ok"
	case moveNotFinite:
		return "not_finite"
	case moveOutOfBounds:
		return "out_of_bounds"
	case moveBlocked:
		return "obstacle"
	case moveTooFar:
		return "too_far"
	}
	return "unknown"
}

// checkPosition applies the bounds and obstacle rules shared by every mover
func checkPosition(x, y float64, cfg *Config) moveVerdict {
	if !finite(x, y) {
		return moveNotFinite
	}
	if !InBounds(x, y, cfg.EntityRadius, cfg.MapWidth, cfg.MapHeight) {
		return moveOutOfBounds
	}
	if arena.BlocksBox(BoxAround(x, y, cfg.EntityRadius)) {
		return moveBlocked
	}
	return moveOK
}

// validateMove checks a client-proposed transform against e's current state
func validateMove(e *Entity, m PlayerMoveMsg, cfg *Config) moveVerdict {
	if !finite(m.X, m.Y, m.Angle, m.VX, m.VY) {
		return moveNotFinite
	}
	if v := checkPosition(m.X, m.Y, cfg); v != moveOK {
		return v
	}
	if Distance(e.X, e.Y, m.X, m.Y) > cfg.MaxMoveDistance {
		return moveTooFar
	}
	return moveOK
}

func correctionFor(e *Entity) Envelope {
	return Envelope{T: MsgPositionCorrection, Data: PositionCorrectionMsg{
		X:     e.X,
		Y:     e.Y,
		Angle: e.Angle,
		VX:    e.VX,
		VY:    e.VY,
	}}
}

// Move validates a human's proposed transform. Rejections leave the entity
// untouched and send the authoritative transform back to the mover only.
func (r *Room) Move(connID string, m PlayerMoveMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[connID]
	if !ok || r.closed || e.IsBot() {
		return
	}
	if r.state != StatePlaying || !e.Alive() {
		return
	}

	if v := validateMove(e, m, &r.cfg); v != moveOK {
		r.sendTo(connID, correctionFor(e))
		r.log.Debug("move rejected", "player", connID, "reason", v.String(),
			"from_x", e.X, "from_y", e.Y, "to_x", m.X, "to_y", m.Y)
		r.journal.Track(EvtMoveRejected, r.ID, connID, v.String())
		r.flushLocked()
		return
	}

	now := r.now()
	e.X, e.Y = m.X, m.Y
	e.Angle = NormalizeAngle(m.Angle)
	e.VX, e.VY = m.VX, m.VY
	if speed := math.Hypot(e.VX, e.VY); speed > r.cfg.MaxMoveDistance {
		scale := r.cfg.MaxMoveDistance / speed
		e.VX *= scale
		e.VY *= scale
	}
	r.publishExcept(connID, movedMsg(e, now))
	r.flushLocked()
}

// Shoot fires for a human along their last reported facing
func (r *Room) Shoot(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[connID]
	if !ok || r.closed || r.state != StatePlaying || e.IsBot() {
		return
	}
	r.fireLocked(e, r.now())
	r.flushLocked()
}

// Reload starts a manual reload for a human
func (r *Room) Reload(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[connID]
	if !ok || r.closed || r.state != StatePlaying || e.IsBot() {
		return
	}
	e.StartReload(r.now())
}

// ReportHit honours a client hit report only if the shooter has an
// in-flight bullet close enough to the target. That bullet is consumed and
// its own damage applies; the reported amount is ignored.
func (r *Room) ReportHit(connID string, m BulletHitMsg) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[connID]; !ok || r.closed || r.state != StatePlaying {
		return
	}
	if connID != m.ShooterID && connID != m.TargetID {
		return
	}
	target, ok := r.entities[m.TargetID]
	if !ok || !target.Alive() || m.ShooterID == m.TargetID {
		return
	}

	reach := r.cfg.EntityRadius + r.cfg.HitTolerance
	idx := -1
	best := math.MaxFloat64
	for i, b := range r.bullets {
		if b.OwnerID != m.ShooterID {
			continue
		}
		if d := Distance(b.X, b.Y, target.X, target.Y); d <= reach && d < best {
			idx, best = i, d
		}
	}
	if idx < 0 {
		r.log.Debug("hit report rejected", "reporter", connID, "shooter", m.ShooterID, "target", m.TargetID)
		return
	}

	b := r.bullets[idx]
	r.bullets = append(r.bullets[:idx], r.bullets[idx+1:]...)
	r.resolveHitLocked(b.OwnerID, target.ID, b.Damage)
	r.flushLocked()
}
