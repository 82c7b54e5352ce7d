package main

import (
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrRoomFull   = errors.New("room is full")
	ErrRoomClosed = errors.New("room is not accepting players")
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// Journal receives room events and settlements for persistence
type Journal interface {
	Track(evtType, roomID, entityID, data string)
	RecordMatch(rec MatchRecord)
}

type nopJournal struct{}

func (nopJournal) Track(string, string, string, string) {}
func (nopJournal) RecordMatch(MatchRecord)              {}

// MatchRecord is a settled match handed to the journal
type MatchRecord struct {
	RoomID    string
	StartedAt time.Time
	Duration  time.Duration
	Reason    string
	Stats     []FinalStat
}

// outMsg is a queued delivery; to and except are connection ids
type outMsg struct {
	to     string
	except string
	env    Envelope
	bin    []byte
}

// Room holds one match: its entities, bullets and timers. Every exported
// method takes the room lock, mutates, then flushes queued messages.
type Room struct {
	ID       string
	cfg      Config
	log      *slog.Logger
	journal  Journal
	onClosed func(id string)
	now      func() time.Time

	mu       sync.Mutex
	state    RoomState
	closed   bool
	entities map[string]*Entity
	members  map[string]Broadcaster
	bullets  []*Bullet
	botNames map[string]bool
	rng      *rand.Rand
	outbox   []outMsg

	matchmakingTimer *time.Timer
	matchmakingGen   int
	matchTimer       *time.Timer
	cleanupTimer     *time.Timer
	respawnTimers    map[string]*time.Timer
	stopTick         chan struct{}

	startedAt time.Time
	endsAt    time.Time
	lastSync  time.Time
}

// NewRoom creates an empty room in the waiting state
func NewRoom(cfg Config, journal Journal) *Room {
	if journal == nil {
		journal = nopJournal{}
	}
	id := uuid.NewString()
	seed := uint64(time.Now().UnixNano())
	return &Room{
		ID:            id,
		cfg:           cfg,
		log:           slog.With("room", id),
		journal:       journal,
		now:           time.Now,
		entities:      make(map[string]*Entity),
		members:       make(map[string]Broadcaster),
		botNames:      make(map[string]bool),
		respawnTimers: make(map[string]*time.Timer),
		rng:           rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Join seats a human. The room starts as soon as it is full.
func (r *Room) Join(connID, name string, b Broadcaster) (EntityState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state != StateWaiting {
		return EntityState{}, ErrRoomClosed
	}
	if len(r.entities) >= r.cfg.Capacity {
		return EntityState{}, ErrRoomFull
	}

	p := r.spawnPointLocked(nil)
	e := NewEntity(connID, name, r.cfg.Loadout, p.X, p.Y)
	r.entities[connID] = e
	r.members[connID] = b

	players := r.snapshotLocked()
	r.sendTo(connID, Envelope{T: MsgRoomJoined, Data: RoomJoinedMsg{
		RoomID:       r.ID,
		PlayerID:     connID,
		PlayersCount: len(r.entities),
		MaxPlayers:   r.cfg.Capacity,
		GameState:    r.state.String(),
		Players:      players,
	}})
	r.publishExcept(connID, Envelope{T: MsgPlayerJoined, Data: PlayerJoinedMsg{Player: e.ToState()}})
	r.publish(Envelope{T: MsgPlayersUpdate, Data: PlayersUpdateMsg{PlayersCount: len(players), Players: players}})
	r.log.Info("player joined", "player", connID, "name", name, "seated", len(r.entities))

	if r.matchmakingTimer == nil {
		r.matchmakingGen++
		gen := r.matchmakingGen
		r.matchmakingTimer = time.AfterFunc(r.cfg.MatchmakingTimeout, func() { r.matchmakingExpired(gen) })
	}
	if len(r.entities) >= r.cfg.Capacity {
		r.startGameLocked(r.now())
	}
	state := e.ToState()
	r.flushLocked()
	return state, nil
}

// Leave removes a player on disconnect or request
func (r *Room) Leave(connID string) {
	r.mu.Lock()
	e, ok := r.entities[connID]
	if !ok || r.closed {
		r.mu.Unlock()
		return
	}
	delete(r.entities, connID)
	delete(r.members, connID)
	if t := r.respawnTimers[connID]; t != nil {
		t.Stop()
		delete(r.respawnTimers, connID)
	}

	players := r.snapshotLocked()
	r.publish(Envelope{T: MsgPlayerLeft, Data: PlayerLeftMsg{PlayerID: connID}})
	r.publish(Envelope{T: MsgPlayersUpdate, Data: PlayersUpdateMsg{PlayersCount: len(players), Players: players}})
	r.log.Info("player left", "player", connID, "name", e.Name, "state", r.state)

	closedNow := false
	humans := r.humanCountLocked()
	switch r.state {
	case StatePlaying:
		if len(r.entities) < 2 || humans == 0 {
			r.endGameLocked("abandoned")
			if len(r.members) == 0 {
				r.teardownLocked()
				closedNow = true
			}
		}
	case StateWaiting:
		if humans == 0 {
			r.teardownLocked()
			closedNow = true
		}
	case StateFinished:
		if len(r.members) == 0 {
			r.teardownLocked()
			closedNow = true
		}
	}
	r.flushLocked()
	r.mu.Unlock()

	if closedNow && r.onClosed != nil {
		r.onClosed(r.ID)
	}
}

// Open reports whether the room can seat another human
func (r *Room) Open() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && r.state == StateWaiting && len(r.entities) < r.cfg.Capacity
}

// State returns the lifecycle state
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// EntityCount returns the number of seated entities
func (r *Room) EntityCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entities)
}

// HumanNames returns the display names of seated humans
func (r *Room) HumanNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entities))
	for _, e := range r.entities {
		if !e.IsBot() {
			names = append(names, e.Name)
		}
	}
	return names
}

// Info summarises the room for the ops API
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := RoomInfo{
		ID:       r.ID,
		State:    r.state.String(),
		Entities: len(r.entities),
		Humans:   r.humanCountLocked(),
		Capacity: r.cfg.Capacity,
	}
	if r.state == StatePlaying {
		if left := r.endsAt.Sub(r.now()); left > 0 {
			info.TimeLeft = left.Milliseconds()
		}
	}
	return info
}

// Shutdown stops every timer and releases the room without a settlement
func (r *Room) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.teardownLocked()
	}
}

func (r *Room) matchmakingExpired(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StateWaiting || gen != r.matchmakingGen {
		return
	}
	r.matchmakingTimer = nil
	if r.humanCountLocked() == 0 {
		return
	}
	r.log.Info("matchmaking timed out", "seated", len(r.entities))
	r.startGameLocked(r.now())
	r.flushLocked()
}

func (r *Room) matchExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StatePlaying {
		return
	}
	r.endGameLocked("time")
	r.flushLocked()
}

func (r *Room) cleanupExpired() {
	r.mu.Lock()
	ok := !r.closed && r.state == StateFinished
	if ok {
		r.teardownLocked()
	}
	r.mu.Unlock()
	if ok && r.onClosed != nil {
		r.onClosed(r.ID)
	}
}

// startGameLocked backfills bots and enters the play phase
func (r *Room) startGameLocked(now time.Time) {
	if r.state != StateWaiting {
		return
	}
	if r.matchmakingTimer != nil {
		r.matchmakingTimer.Stop()
		r.matchmakingTimer = nil
	}
	r.matchmakingGen++
	bots := r.backfillLocked()

	r.state = StatePlaying
	r.startedAt = now
	r.endsAt = now.Add(r.cfg.MatchLength)
	r.lastSync = now

	r.publish(Envelope{T: MsgGameStart, Data: GameStartMsg{
		RoomID:   r.ID,
		Players:  r.snapshotLocked(),
		Duration: r.cfg.MatchLength.Milliseconds(),
	}})
	r.matchTimer = time.AfterFunc(r.cfg.MatchLength, r.matchExpired)
	stop := make(chan struct{})
	r.stopTick = stop
	go r.run(stop)

	r.log.Info("match started", "humans", r.humanCountLocked(), "bots", bots)
	r.journal.Track(EvtMatchStart, r.ID, "", "")
}

// backfillLocked fills free seats with bots and returns how many it added
func (r *Room) backfillLocked() int {
	current := len(r.entities)
	count := max(r.cfg.Capacity, current+1) - current
	if free := r.cfg.Capacity - current; count > free {
		count = free
	}
	for i := 0; i < count; i++ {
		tier := pickTier(r.rng, r.cfg.Bot.Tiers)
		p := r.spawnPointLocked(nil)
		e := NewEntity("bot_"+GenerateID(4), botName(r.botNames, r.rng), r.cfg.Loadout, p.X, p.Y)
		e.Brain = NewBotBrain(tier, p.X, p.Y, r.rng, &r.cfg)
		r.entities[e.ID] = e
	}
	return count
}

// endGameLocked settles the match and schedules teardown
func (r *Room) endGameLocked(reason string) {
	if r.state != StatePlaying {
		return
	}
	r.state = StateFinished
	r.stopTimersLocked()
	r.bullets = nil

	list := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		list = append(list, e)
	}
	stats := rankEntities(list)
	r.publish(Envelope{T: MsgGameEnd, Data: GameEndMsg{FinalStats: stats}})

	now := r.now()
	r.journal.RecordMatch(MatchRecord{
		RoomID:    r.ID,
		StartedAt: r.startedAt,
		Duration:  now.Sub(r.startedAt),
		Reason:    reason,
		Stats:     stats,
	})
	r.journal.Track(EvtMatchEnd, r.ID, "", reason)
	r.log.Info("match ended", "reason", reason, "entities", len(stats))

	r.cleanupTimer = time.AfterFunc(r.cfg.CleanupDelay, r.cleanupExpired)
}

func (r *Room) stopTimersLocked() {
	if r.stopTick != nil {
		close(r.stopTick)
		r.stopTick = nil
	}
	if r.matchmakingTimer != nil {
		r.matchmakingTimer.Stop()
		r.matchmakingTimer = nil
	}
	r.matchmakingGen++
	if r.matchTimer != nil {
		r.matchTimer.Stop()
		r.matchTimer = nil
	}
	for id, t := range r.respawnTimers {
		t.Stop()
		delete(r.respawnTimers, id)
	}
}

// teardownLocked releases everything the room owns
func (r *Room) teardownLocked() {
	r.stopTimersLocked()
	if r.cleanupTimer != nil {
		r.cleanupTimer.Stop()
		r.cleanupTimer = nil
	}
	if r.state == StateWaiting || r.state == StatePlaying {
		r.state = StateFinished
	}
	r.closed = true
	r.entities = make(map[string]*Entity)
	r.members = make(map[string]Broadcaster)
	r.bullets = nil
	r.outbox = nil
	r.log.Info("room closed")
}

// run drives the fixed-interval tick until stop is closed
func (r *Room) run(stop chan struct{}) {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.tick()
		case <-stop:
			return
		}
	}
}

func (r *Room) tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StatePlaying {
		return
	}
	r.stepLocked(r.now())
	r.flushLocked()
}

// stepLocked advances the simulation by one tick
func (r *Room) stepLocked(now time.Time) {
	for _, e := range r.sortedEntitiesLocked() {
		if e.Brain == nil || !e.Alive() {
			continue
		}
		in := e.Brain.Think(e, r.entities, now, r.rng, &r.cfg)
		r.driveBotLocked(e, in, now)
	}

	for _, e := range r.sortedEntitiesLocked() {
		if e.UpdateReload(now) {
			r.publish(ammoUpdate(e))
		}
	}

	var hits []HitRequest
	r.bullets, hits = advanceBullets(r.bullets, r.entities, r.cfg.TickInterval, &r.cfg)
	for _, h := range hits {
		r.resolveHitLocked(h.OwnerID, h.TargetID, h.Damage)
	}

	if now.Sub(r.lastSync) >= r.cfg.FullSyncInterval {
		r.lastSync = now
		r.publishSyncLocked(now)
	}
}

// driveBotLocked feeds a bot's intent through the same movement and
// shooting rules that humans are held to
func (r *Room) driveBotLocked(e *Entity, in BotIntent, now time.Time) {
	prevX, prevY, prevAngle := e.X, e.Y, e.Angle
	e.Angle = in.Angle
	if in.Reload {
		e.StartReload(now)
	}

	e.ApplyMovementIntent(in.MoveX, in.MoveY)
	r.separateLocked(e)
	speed := math.Hypot(e.VX, e.VY)
	r.integrateLocked(e)
	e.Coast()
	e.Brain.CheckStuck(e, speed, r.cfg.TickInterval, r.rng, &r.cfg)

	if in.Fire && r.fireLocked(e, now) {
		e.Brain.ShotFired(now, r.rng)
	}
	if e.X != prevX || e.Y != prevY || e.Angle != prevAngle {
		r.publish(movedMsg(e, now))
	}
}

// separateLocked nudges e away from entities crowding it
func (r *Room) separateLocked(e *Entity) {
	for _, o := range r.entities {
		if o == e || !o.Alive() {
			continue
		}
		d := Distance(e.X, e.Y, o.X, o.Y)
		if d >= r.cfg.Bot.SeparationDist {
			continue
		}
		dx, dy := unit(e.X-o.X, e.Y-o.Y)
		if dx == 0 && dy == 0 {
			a := r.rng.Float64() * 2 * math.Pi
			dx, dy = math.Cos(a), math.Sin(a)
		}
		push := r.cfg.Bot.SeparationForce * (1 - d/r.cfg.Bot.SeparationDist)
		e.VX += dx * push
		e.VY += dy * push
	}
}

// integrateLocked moves e by its velocity, sliding along blocked axes
func (r *Room) integrateLocked(e *Entity) {
	nx, ny := e.X+e.VX, e.Y+e.VY
	if checkPosition(nx, ny, &r.cfg) == moveOK {
		e.X, e.Y = nx, ny
		return
	}
	if checkPosition(nx, e.Y, &r.cfg) == moveOK {
		e.X = nx
		e.VY = 0
		return
	}
	if checkPosition(e.X, ny, &r.cfg) == moveOK {
		e.Y = ny
		e.VX = 0
		return
	}
	e.VX, e.VY = 0, 0
}

// fireLocked is the single shooting path for humans and bots. It reports
// whether a bullet was spawned.
func (r *Room) fireLocked(e *Entity, now time.Time) bool {
	if len(r.bullets) >= r.cfg.MaxBullets {
		return false
	}
	b := e.Shoot(now)
	if b == nil {
		return false
	}
	r.bullets = append(r.bullets, b)
	r.publish(Envelope{T: MsgBulletFired, Data: BulletFiredMsg{Bullet: b.ToState()}})
	r.publish(ammoUpdate(e))
	return true
}

// resolveHitLocked applies damage by id; stale ids are a no-op
func (r *Room) resolveHitLocked(ownerID, targetID string, damage int) {
	target, ok := r.entities[targetID]
	if !ok || !target.Alive() {
		return
	}
	attacker := r.entities[ownerID]
	died := target.TakeDamage(damage, attacker, r.cfg.KillScore)
	r.publish(Envelope{T: MsgPlayerHealthUpdate, Data: HealthUpdateMsg{PlayerID: target.ID, Health: target.Health}})
	if !died {
		return
	}

	killer := PlayerKilledMsg{KillerID: ownerID, VictimID: target.ID, VictimName: target.Name}
	if attacker != nil {
		killer.KillerName = attacker.Name
	}
	r.publish(Envelope{T: MsgPlayerKilled, Data: killer})
	r.journal.Track(EvtKill, r.ID, ownerID, target.ID)
	r.scheduleRespawnLocked(target.ID)
}

func (r *Room) scheduleRespawnLocked(id string) {
	if t := r.respawnTimers[id]; t != nil {
		t.Stop()
	}
	r.respawnTimers[id] = time.AfterFunc(r.cfg.RespawnDelay, func() { r.respawn(id) })
}

func (r *Room) respawn(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.state != StatePlaying {
		return
	}
	delete(r.respawnTimers, id)
	e, ok := r.entities[id]
	if !ok || e.Alive() {
		return
	}
	p := r.spawnPointLocked(e)
	e.Respawn(p.X, p.Y)
	if e.Brain != nil {
		e.Brain.Reset(p.X, p.Y, r.rng, &r.cfg)
	}
	r.publish(Envelope{T: MsgPlayerRespawn, Data: PlayerRespawnMsg{PlayerID: id, X: e.X, Y: e.Y, Health: e.Health}})
	r.publish(ammoUpdate(e))
	r.flushLocked()
}

// spawnPointLocked tries a bounded number of table points and falls back
// to the default corner
func (r *Room) spawnPointLocked(exclude *Entity) Vec2 {
	for i := 0; i < r.cfg.SpawnAttempts; i++ {
		p := spawnPoints[r.rng.IntN(len(spawnPoints))]
		if r.spawnClearLocked(p, exclude) {
			return p
		}
	}
	return defaultSpawn
}

func (r *Room) spawnClearLocked(p Vec2, exclude *Entity) bool {
	if !InBounds(p.X, p.Y, r.cfg.EntityRadius, r.cfg.MapWidth, r.cfg.MapHeight) {
		return false
	}
	if arena.BlocksBox(BoxAround(p.X, p.Y, r.cfg.EntityRadius+r.cfg.SpawnMargin)) {
		return false
	}
	for _, e := range r.entities {
		if e == exclude || !e.Alive() {
			continue
		}
		if Distance(p.X, p.Y, e.X, e.Y) < r.cfg.SpawnSpacing {
			return false
		}
	}
	return true
}

func (r *Room) publishSyncLocked(now time.Time) {
	env := Envelope{T: MsgPlayersPositionSync, Data: PositionSyncMsg{
		Players:   r.snapshotLocked(),
		Timestamp: now.UnixMilli(),
	}}
	if !r.cfg.BinarySync {
		r.publish(env)
		return
	}
	data, err := msgpack.Marshal(env)
	if err != nil {
		r.log.Warn("encode sync frame", "err", err)
		r.publish(env)
		return
	}
	r.outbox = append(r.outbox, outMsg{env: env, bin: data})
}

func (r *Room) publish(env Envelope) {
	r.outbox = append(r.outbox, outMsg{env: env})
}

func (r *Room) publishExcept(connID string, env Envelope) {
	r.outbox = append(r.outbox, outMsg{except: connID, env: env})
}

func (r *Room) sendTo(connID string, env Envelope) {
	r.outbox = append(r.outbox, outMsg{to: connID, env: env})
}

// flushLocked delivers everything queued by the current operation
func (r *Room) flushLocked() {
	for _, m := range r.outbox {
		if m.to != "" {
			if b, ok := r.members[m.to]; ok {
				deliver(b, m)
			}
			continue
		}
		for id, b := range r.members {
			if id != m.except {
				deliver(b, m)
			}
		}
	}
	r.outbox = r.outbox[:0]
}

func deliver(b Broadcaster, m outMsg) {
	if m.bin != nil {
		b.SendBinary(m.bin)
		return
	}
	b.SendJSON(m.env)
}

func (r *Room) humanCountLocked() int {
	n := 0
	for _, e := range r.entities {
		if !e.IsBot() {
			n++
		}
	}
	return n
}

func (r *Room) sortedEntitiesLocked() []*Entity {
	list := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *Room) snapshotLocked() []EntityState {
	list := r.sortedEntitiesLocked()
	states := make([]EntityState, len(list))
	for i, e := range list {
		states[i] = e.ToState()
	}
	return states
}

func ammoUpdate(e *Entity) Envelope {
	return Envelope{T: MsgPlayerAmmoUpdate, Data: AmmoUpdateMsg{PlayerID: e.ID, Ammo: e.Ammo, Reserve: e.Reserve}}
}

func movedMsg(e *Entity, now time.Time) Envelope {
	return Envelope{T: MsgPlayerMoved, Data: PlayerMovedMsg{
		PlayerID:  e.ID,
		X:         round1(e.X),
		Y:         round1(e.Y),
		Angle:     round2(e.Angle),
		VX:        round2(e.VX),
		VY:        round2(e.VY),
		Timestamp: now.UnixMilli(),
	}}
}
