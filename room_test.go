package main

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []Envelope
	binary   [][]byte
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if env, ok := msg.(Envelope); ok {
		m.messages = append(m.messages, env)
	}
}

func (m *mockBroadcaster) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockBroadcaster) find(msgType string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, env := range m.messages {
		if env.T == msgType {
			out = append(out, env)
		}
	}
	return out
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages) + len(m.binary)
}

func (m *mockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.binary = nil
}

// recordingJournal keeps everything a room reports
type recordingJournal struct {
	mu      sync.Mutex
	events  []string
	matches []MatchRecord
}

func (j *recordingJournal) Track(evtType, roomID, entityID, data string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, evtType)
}

func (j *recordingJournal) RecordMatch(rec MatchRecord) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.matches = append(j.matches, rec)
}

func (j *recordingJournal) tracked(evtType string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.events {
		if e == evtType {
			n++
		}
	}
	return n
}

// testConfig keeps every timer out of the way unless a test shortens it
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MatchmakingTimeout = time.Hour
	cfg.MatchLength = time.Hour
	cfg.TickInterval = time.Hour
	cfg.FullSyncInterval = time.Hour
	cfg.RespawnDelay = 10 * time.Millisecond
	cfg.CleanupDelay = time.Hour
	return cfg
}

func newTestRoom(t *testing.T, cfg Config, journal Journal) *Room {
	t.Helper()
	r := NewRoom(cfg, journal)
	t.Cleanup(r.Shutdown)
	return r
}

// inLock runs fn under the room lock and flushes what it queued
func (r *Room) inLock(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn()
	r.flushLocked()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func joinN(t *testing.T, r *Room, ids ...string) map[string]*mockBroadcaster {
	t.Helper()
	out := make(map[string]*mockBroadcaster)
	for _, id := range ids {
		b := &mockBroadcaster{}
		if _, err := r.Join(id, "name-"+id, b); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
		out[id] = b
	}
	return out
}

func TestRoomJoinSendsRoster(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil)
	conns := joinN(t, r, "a")

	joined := conns["a"].find(MsgRoomJoined)
	if len(joined) != 1 {
		t.Fatalf("expected 1 roomJoined, got %d", len(joined))
	}
	msg := joined[0].Data.(RoomJoinedMsg)
	if msg.PlayerID != "a" || msg.RoomID != r.ID || msg.MaxPlayers != 6 || msg.GameState != "waiting" {
		t.Errorf("unexpected roomJoined %+v", msg)
	}
	if msg.PlayersCount != 1 || len(msg.Players) != 1 {
		t.Errorf("expected roster of 1, got %d", msg.PlayersCount)
	}

	b := &mockBroadcaster{}
	if _, err := r.Join("b", "Bee", b); err != nil {
		t.Fatal(err)
	}
	pj := conns["a"].find(MsgPlayerJoined)
	if len(pj) != 1 || pj[0].Data.(PlayerJoinedMsg).Player.ID != "b" {
		t.Errorf("expected playerJoined for b, got %+v", pj)
	}
	if len(b.find(MsgPlayerJoined)) != 0 {
		t.Error("joiner should not get its own playerJoined")
	}
	if n := len(conns["a"].find(MsgPlayersUpdate)); n != 2 {
		t.Errorf("expected 2 playersUpdate, got %d", n)
	}
	if r.State() != StateWaiting {
		t.Errorf("expected waiting, got %v", r.State())
	}
}

func TestRoomJoinSpawnsClear(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		st, err := r.Join(id, id, &mockBroadcaster{})
		if err != nil {
			t.Fatal(err)
		}
		cfg := testConfig()
		if v := checkPosition(st.X, st.Y, &cfg); v != moveOK {
			t.Errorf("%s spawned at invalid position (%v,%v): %v", id, st.X, st.Y, v)
		}
	}
}

func TestRoomStartsWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	r := newTestRoom(t, cfg, nil)
	conns := joinN(t, r, "a", "b")

	if r.State() != StatePlaying {
		t.Fatalf("expected playing, got %v", r.State())
	}
	if r.EntityCount() != 2 {
		t.Errorf("full room should not get bots, have %d entities", r.EntityCount())
	}
	start := conns["a"].find(MsgGameStart)
	if len(start) != 1 {
		t.Fatalf("expected gameStart, got %d", len(start))
	}
	gs := start[0].Data.(GameStartMsg)
	if gs.Duration != cfg.MatchLength.Milliseconds() || len(gs.Players) != 2 {
		t.Errorf("unexpected gameStart %+v", gs)
	}

	_, err := r.Join("c", "Late", &mockBroadcaster{})
	if !errors.Is(err, ErrRoomClosed) {
		t.Errorf("expected ErrRoomClosed, got %v", err)
	}
	if r.Open() {
		t.Error("playing room should not be open")
	}
}

func TestRoomMatchmakingTimeoutBackfills(t *testing.T) {
	cfg := testConfig()
	cfg.MatchmakingTimeout = 30 * time.Millisecond
	journal := &recordingJournal{}
	r := newTestRoom(t, cfg, journal)
	conns := joinN(t, r, "human")

	waitFor(t, "match start", func() bool { return r.State() == StatePlaying })

	if n := r.EntityCount(); n != 6 {
		t.Fatalf("expected 6 entities, got %d", n)
	}
	if names := r.HumanNames(); len(names) != 1 {
		t.Errorf("expected 1 human, got %v", names)
	}

	start := conns["human"].find(MsgGameStart)
	if len(start) != 1 {
		t.Fatalf("expected one gameStart, got %d", len(start))
	}
	seen := map[string]bool{}
	bots := 0
	for _, p := range start[0].Data.(GameStartMsg).Players {
		if seen[p.Name] {
			t.Errorf("duplicate name %q", p.Name)
		}
		seen[p.Name] = true
		if p.IsBot {
			bots++
			if p.Difficulty == "" {
				t.Errorf("bot %s has no difficulty", p.ID)
			}
		}
	}
	if bots != 5 {
		t.Errorf("expected 5 bots, got %d", bots)
	}
	if journal.tracked(EvtMatchStart) != 1 {
		t.Error("match start should be journaled once")
	}
}

func TestRoomTimersAfterShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.MatchmakingTimeout = 20 * time.Millisecond
	r := NewRoom(cfg, nil)
	conns := joinN(t, r, "a")
	r.Shutdown()

	time.Sleep(60 * time.Millisecond)
	if len(conns["a"].find(MsgGameStart)) != 0 {
		t.Error("matchmaking timer fired against a closed room")
	}
	if r.EntityCount() != 0 {
		t.Error("closed room should hold no entities")
	}
	if r.Open() {
		t.Error("closed room should not accept players")
	}
	if _, err := r.Join("b", "B", &mockBroadcaster{}); !errors.Is(err, ErrRoomClosed) {
		t.Errorf("expected ErrRoomClosed, got %v", err)
	}
}

func TestRoomStaleMatchmakingTimer(t *testing.T) {
	cfg := testConfig()
	r := newTestRoom(t, cfg, nil)
	joinN(t, r, "a")

	var gen int
	r.inLock(func() { gen = r.matchmakingGen })

	// a superseded timer must not start the match
	r.matchmakingExpired(gen - 1)
	if r.State() != StateWaiting {
		t.Fatalf("stale timer started the match: %v", r.State())
	}
	r.matchmakingExpired(gen)
	if r.State() != StatePlaying {
		t.Errorf("current timer should start the match, got %v", r.State())
	}
}

func TestRoomMatchEndsOnTime(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	cfg.MatchLength = 30 * time.Millisecond
	journal := &recordingJournal{}
	r := newTestRoom(t, cfg, journal)
	conns := joinN(t, r, "a", "b")

	waitFor(t, "match end", func() bool { return r.State() == StateFinished })

	end := conns["a"].find(MsgGameEnd)
	if len(end) != 1 {
		t.Fatalf("expected one gameEnd, got %d", len(end))
	}
	if stats := end[0].Data.(GameEndMsg).FinalStats; len(stats) != 2 {
		t.Errorf("expected 2 ranked entities, got %d", len(stats))
	}

	journal.mu.Lock()
	defer journal.mu.Unlock()
	if len(journal.matches) != 1 {
		t.Fatalf("expected 1 archived match, got %d", len(journal.matches))
	}
	if rec := journal.matches[0]; rec.Reason != "time" || rec.RoomID != r.ID {
		t.Errorf("unexpected match record %+v", rec)
	}
}

func TestRoomCleanupClosesRoom(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	cfg.MatchLength = 10 * time.Millisecond
	cfg.CleanupDelay = 10 * time.Millisecond
	r := newTestRoom(t, cfg, nil)
	closed := make(chan string, 1)
	r.onClosed = func(id string) { closed <- id }
	joinN(t, r, "a", "b")

	select {
	case id := <-closed:
		if id != r.ID {
			t.Errorf("closed callback for %s, want %s", id, r.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("room was never cleaned up")
	}
	if r.EntityCount() != 0 {
		t.Error("cleaned-up room should be empty")
	}
}

func TestRoomShootAndAutoReload(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	r := newTestRoom(t, cfg, nil)
	clock := time.Unix(5000, 0)
	r.now = func() time.Time { return clock }
	conns := joinN(t, r, "a", "b")

	r.inLock(func() {
		a := r.entities["a"]
		a.Ammo = 1
		a.Angle = 0
	})
	conns["a"].reset()
	r.Shoot("a")

	if len(conns["b"].find(MsgBulletFired)) != 1 {
		t.Fatal("expected bulletFired broadcast")
	}
	ammo := conns["a"].find(MsgPlayerAmmoUpdate)
	if len(ammo) != 1 || ammo[0].Data.(AmmoUpdateMsg).Ammo != 0 {
		t.Fatalf("expected ammo update to 0, got %+v", ammo)
	}

	clock = clock.Add(cfg.Loadout.AutoReloadTime)
	conns["a"].reset()
	r.inLock(func() { r.stepLocked(clock) })

	var got *AmmoUpdateMsg
	for _, env := range conns["a"].find(MsgPlayerAmmoUpdate) {
		if m := env.Data.(AmmoUpdateMsg); m.PlayerID == "a" {
			got = &m
		}
	}
	if got == nil {
		t.Fatal("expected ammo update after the auto reload")
	}
	if got.Ammo != 30 || got.Reserve != 90 {
		t.Errorf("expected 30/90, got %d/%d", got.Ammo, got.Reserve)
	}
}

func TestRoomShootOutsidePlayIgnored(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil)
	conns := joinN(t, r, "a")
	conns["a"].reset()
	r.Shoot("a")
	r.Reload("a")
	if conns["a"].count() != 0 {
		t.Error("actions while waiting should be ignored")
	}
}

func TestRoomKillAndRespawn(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	journal := &recordingJournal{}
	r := newTestRoom(t, cfg, journal)
	conns := joinN(t, r, "a", "b")

	r.inLock(func() {
		r.entities["b"].Health = 20
		r.resolveHitLocked("a", "b", 25)

		a, b := r.entities["a"], r.entities["b"]
		if b.Health != 0 || b.Deaths != 1 {
			t.Errorf("victim: health %d deaths %d", b.Health, b.Deaths)
		}
		if a.Kills != 1 || a.Score != cfg.KillScore {
			t.Errorf("attacker: kills %d score %d", a.Kills, a.Score)
		}
	})

	health := conns["a"].find(MsgPlayerHealthUpdate)
	if len(health) != 1 || health[0].Data.(HealthUpdateMsg).Health != 0 {
		t.Errorf("expected health update to 0, got %+v", health)
	}
	killed := conns["b"].find(MsgPlayerKilled)
	if len(killed) != 1 {
		t.Fatalf("expected playerKilled, got %d", len(killed))
	}
	if k := killed[0].Data.(PlayerKilledMsg); k.KillerID != "a" || k.VictimID != "b" || k.KillerName != "name-a" {
		t.Errorf("unexpected kill message %+v", k)
	}

	waitFor(t, "respawn", func() bool { return len(conns["a"].find(MsgPlayerRespawn)) == 1 })
	rs := conns["a"].find(MsgPlayerRespawn)[0].Data.(PlayerRespawnMsg)
	if rs.PlayerID != "b" || rs.Health != cfg.Loadout.MaxHealth {
		t.Errorf("unexpected respawn %+v", rs)
	}
	if v := checkPosition(rs.X, rs.Y, &cfg); v != moveOK {
		t.Errorf("respawned at invalid position (%v,%v): %v", rs.X, rs.Y, v)
	}
	if arena.BlocksBox(BoxAround(rs.X, rs.Y, cfg.EntityRadius+cfg.SpawnMargin)) {
		t.Errorf("respawn point (%v,%v) too close to an obstacle", rs.X, rs.Y)
	}
	if journal.tracked(EvtKill) != 1 {
		t.Error("kill should be journaled")
	}
}

func TestRoomHitOnDepartedTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 3
	r := newTestRoom(t, cfg, nil)
	conns := joinN(t, r, "a", "b", "c")
	r.Leave("c")
	conns["a"].reset()

	r.inLock(func() { r.resolveHitLocked("a", "c", 25) })
	if conns["a"].count() != 0 {
		t.Error("hit on a departed entity should be a no-op")
	}
}

func TestRoomLeaveDuringPlayEndsMatch(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	journal := &recordingJournal{}
	r := newTestRoom(t, cfg, journal)
	conns := joinN(t, r, "a", "b")

	r.Leave("b")
	if r.State() != StateFinished {
		t.Fatalf("expected finished, got %v", r.State())
	}
	left := conns["a"].find(MsgPlayerLeft)
	if len(left) != 1 || left[0].Data.(PlayerLeftMsg).PlayerID != "b" {
		t.Errorf("expected playerLeft for b, got %+v", left)
	}
	if len(conns["a"].find(MsgGameEnd)) != 1 {
		t.Error("remaining player should get gameEnd")
	}
	if len(conns["b"].find(MsgPlayerLeft)) != 0 {
		t.Error("leaver should not be messaged after leaving")
	}
	if journal.tracked(EvtMatchEnd) != 1 {
		t.Error("abandoned match should still be settled")
	}
}

func TestRoomLastHumanLeavesCloses(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 3
	cfg.MatchmakingTimeout = 10 * time.Millisecond
	r := newTestRoom(t, cfg, nil)
	closed := make(chan string, 1)
	r.onClosed = func(id string) { closed <- id }
	joinN(t, r, "a")
	waitFor(t, "match start", func() bool { return r.State() == StatePlaying })

	r.Leave("a")
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("room with only bots left should close")
	}
	if r.State() != StateFinished {
		t.Errorf("expected finished, got %v", r.State())
	}
}

func TestRoomWaitingEmptyCloses(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil)
	closed := false
	r.onClosed = func(string) { closed = true }
	joinN(t, r, "a")
	r.Leave("a")
	if !closed {
		t.Error("empty waiting room should close")
	}
	if r.Open() {
		t.Error("closed room should not be open")
	}
}

func TestRoomsAreIsolated(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	ra := newTestRoom(t, cfg, nil)
	rb := newTestRoom(t, cfg, nil)
	joinN(t, ra, "a1", "a2")
	connsB := joinN(t, rb, "b1", "b2")

	var before []EntityState
	rb.inLock(func() { before = rb.snapshotLocked() })
	connsB["b1"].reset()
	connsB["b2"].reset()

	ra.inLock(func() {
		ra.entities["a2"].Health = 10
		ra.resolveHitLocked("a1", "a2", 25)
		ra.bullets = append(ra.bullets, NewBullet(ra.entities["a1"]))
		ra.stepLocked(ra.now())
	})

	var after []EntityState
	rb.inLock(func() { after = rb.snapshotLocked() })
	if len(before) != len(after) {
		t.Fatal("room B roster changed")
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("room B entity changed: %+v -> %+v", before[i], after[i])
		}
	}
	if connsB["b1"].count() != 0 || connsB["b2"].count() != 0 {
		t.Error("room B received messages for room A events")
	}
}

func TestRoomPositionSyncBinary(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	r := newTestRoom(t, cfg, nil)
	conns := joinN(t, r, "a", "b")

	now := time.Now()
	r.inLock(func() { r.publishSyncLocked(now) })

	conns["a"].mu.Lock()
	frames := conns["a"].binary
	conns["a"].mu.Unlock()
	if len(frames) != 1 {
		t.Fatalf("expected 1 binary frame, got %d", len(frames))
	}
	var frame struct {
		T string          `msgpack:"t"`
		D PositionSyncMsg `msgpack:"d"`
	}
	if err := msgpack.Unmarshal(frames[0], &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if frame.T != MsgPlayersPositionSync {
		t.Errorf("expected %s, got %s", MsgPlayersPositionSync, frame.T)
	}
	if len(frame.D.Players) != 2 || frame.D.Timestamp != now.UnixMilli() {
		t.Errorf("unexpected sync payload %+v", frame.D)
	}
}

func TestRoomPositionSyncJSON(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	cfg.BinarySync = false
	r := newTestRoom(t, cfg, nil)
	conns := joinN(t, r, "a", "b")

	r.inLock(func() { r.publishSyncLocked(time.Now()) })
	frames := conns["b"].find(MsgPlayersPositionSync)
	if len(frames) != 1 {
		t.Fatalf("expected JSON sync, got %d", len(frames))
	}
	if n := len(frames[0].Data.(PositionSyncMsg).Players); n != 2 {
		t.Errorf("expected 2 players, got %d", n)
	}
}

func TestRoomBotsStayInValidPositions(t *testing.T) {
	cfg := testConfig()
	cfg.MatchmakingTimeout = 10 * time.Millisecond
	r := newTestRoom(t, cfg, nil)
	joinN(t, r, "human")
	waitFor(t, "match start", func() bool { return r.State() == StatePlaying })

	var start map[string]Vec2
	r.inLock(func() {
		start = make(map[string]Vec2)
		for id, e := range r.entities {
			start[id] = Vec2{e.X, e.Y}
		}
	})

	now := time.Now()
	for i := 0; i < 300; i++ {
		now = now.Add(33 * time.Millisecond)
		r.inLock(func() {
			r.stepLocked(now)
			for id, e := range r.entities {
				if !e.IsBot() {
					continue
				}
				if v := checkPosition(e.X, e.Y, &r.cfg); v != moveOK {
					t.Fatalf("bot %s at invalid position (%v,%v): %v", id, e.X, e.Y, v)
				}
			}
			if len(r.bullets) > r.cfg.MaxBullets {
				t.Fatalf("bullet cap exceeded: %d", len(r.bullets))
			}
		})
	}

	moved := 0
	r.inLock(func() {
		for id, e := range r.entities {
			if e.IsBot() && (e.X != start[id].X || e.Y != start[id].Y) {
				moved++
			}
		}
	})
	if moved == 0 {
		t.Error("expected bots to move during play")
	}
}

func TestRoomPatrollingBotIsNotKickedAsStuck(t *testing.T) {
	cfg := testConfig()
	cfg.TickInterval = 33 * time.Millisecond
	r := newTestRoom(t, cfg, nil)
	bot := newTestBot("bot", 650, 420)
	route := []Vec2{{1100, 420}, {650, 420}}
	bot.Brain.Waypoints = route
	r.inLock(func() { r.entities[bot.ID] = bot })

	turned := false
	now := time.Now()
	for i := 0; i < 900; i++ {
		now = now.Add(cfg.TickInterval)
		r.inLock(func() {
			in := bot.Brain.Think(bot, r.entities, now, r.rng, &r.cfg)
			r.driveBotLocked(bot, in, now)
		})
		if &bot.Brain.Waypoints[0] != &route[0] {
			t.Fatalf("patrolling bot on open ground was kicked at tick %d (pos %.1f,%.1f)", i, bot.X, bot.Y)
		}
		if bot.Brain.WaypointIdx == 1 {
			turned = true
		}
	}
	if !turned {
		t.Errorf("bot never reached its first waypoint, stopped at (%.1f,%.1f)", bot.X, bot.Y)
	}
}

func TestRoomBotPushingIntoWallGetsKicked(t *testing.T) {
	cfg := testConfig()
	cfg.TickInterval = 33 * time.Millisecond
	r := newTestRoom(t, cfg, nil)
	// the waypoint sits inside the central building
	bot := newTestBot("bot", 470, 340)
	route := []Vec2{{560, 340}}
	bot.Brain.Waypoints = route
	r.inLock(func() { r.entities[bot.ID] = bot })

	now := time.Now()
	for i := 0; i < 60; i++ {
		now = now.Add(cfg.TickInterval)
		r.inLock(func() {
			in := bot.Brain.Think(bot, r.entities, now, r.rng, &r.cfg)
			r.driveBotLocked(bot, in, now)
		})
		if &bot.Brain.Waypoints[0] != &route[0] {
			return
		}
	}
	t.Errorf("bot pressed against a wall was never kicked, at (%.1f,%.1f)", bot.X, bot.Y)
}

func TestRoomBotCooldownStartsOnRealShot(t *testing.T) {
	r := newTestRoom(t, testConfig(), nil)
	bot := newTestBot("bot", 300, 60)
	now := time.Now()

	r.inLock(func() {
		r.entities[bot.ID] = bot
		bot.Reload = ReloadManual
		bot.ReloadStart = now
		r.driveBotLocked(bot, BotIntent{Fire: true}, now)
		if len(r.bullets) != 0 {
			t.Fatalf("reloading bot fired %d bullets", len(r.bullets))
		}
		if !bot.Brain.NextShot.IsZero() {
			t.Errorf("refused shot should not start the cooldown, got %v", bot.Brain.NextShot)
		}

		bot.Reload = ReloadNone
		r.driveBotLocked(bot, BotIntent{Fire: true}, now)
		if len(r.bullets) != 1 {
			t.Fatalf("expected 1 bullet, got %d", len(r.bullets))
		}
		tier := bot.Brain.Tier
		if wait := bot.Brain.NextShot.Sub(now); wait < tier.CooldownMin || wait > tier.CooldownMax {
			t.Errorf("cooldown %v outside [%v,%v]", wait, tier.CooldownMin, tier.CooldownMax)
		}
	})
}
