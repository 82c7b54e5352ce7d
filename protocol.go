package main

import "encoding/json"

// Client -> Server message types
const (
	MsgJoinMatchmaking = "joinMatchmaking"
	MsgPlayerMove      = "playerMove"
	MsgPlayerShoot     = "playerShoot"
	MsgPlayerReload    = "playerReload"
	MsgBulletHit       = "bulletHit"
	MsgLeaveRoom       = "leaveRoom"
)

// Server -> Client message types
const (
	MsgRoomJoined          = "roomJoined"
	MsgPlayersUpdate       = "playersUpdate"
	MsgPlayerJoined        = "playerJoined"
	MsgGameStart           = "gameStart"
	MsgPlayerMoved         = "playerMoved"
	MsgBulletFired         = "bulletFired"
	MsgPlayerAmmoUpdate    = "playerAmmoUpdate"
	MsgPlayerHealthUpdate  = "playerHealthUpdate"
	MsgPlayerKilled        = "playerKilled"
	MsgPlayerRespawn       = "playerRespawn"
	MsgPlayerLeft          = "playerLeft"
	MsgPositionCorrection  = "positionCorrection"
	MsgPlayersPositionSync = "playersPositionSync"
	MsgGameEnd             = "gameEnd"
	MsgMatchmakingError    = "matchmakingError"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t" msgpack:"t"`
	Data interface{} `json:"d,omitempty" msgpack:"d,omitempty"`
}

// InEnvelope is used for incoming messages; json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// JoinMatchmakingMsg asks to be seated in any open room
type JoinMatchmakingMsg struct {
	Name string `json:"name"`
}

// PlayerMoveMsg is the client's proposed transform
type PlayerMoveMsg struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
}

// BulletHitMsg is a client-side hit report; the damage field is advisory
type BulletHitMsg struct {
	ShooterID string `json:"shooterId"`
	TargetID  string `json:"targetId"`
	Damage    int    `json:"damage"`
}

// EntityState is the full public state of one entity
type EntityState struct {
	ID         string  `json:"id" msgpack:"id"`
	Name       string  `json:"name" msgpack:"name"`
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	VX         float64 `json:"vx" msgpack:"vx"`
	VY         float64 `json:"vy" msgpack:"vy"`
	Angle      float64 `json:"angle" msgpack:"angle"`
	Health     int     `json:"health" msgpack:"health"`
	MaxHealth  int     `json:"maxHealth" msgpack:"maxHealth"`
	Ammo       int     `json:"ammo" msgpack:"ammo"`
	Reserve    int     `json:"reserveAmmo" msgpack:"reserveAmmo"`
	Kills      int     `json:"kills" msgpack:"kills"`
	Deaths     int     `json:"deaths" msgpack:"deaths"`
	Score      int     `json:"score" msgpack:"score"`
	IsBot      bool    `json:"isBot" msgpack:"isBot"`
	Difficulty string  `json:"difficulty,omitempty" msgpack:"difficulty,omitempty"`
	Reloading  bool    `json:"reloading" msgpack:"reloading"`
}

// BulletState describes a bullet at spawn
type BulletState struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"ownerId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	Damage  int     `json:"damage"`
	Life    int64   `json:"life"` // milliseconds
}

// RoomJoinedMsg is sent to a player once seated
type RoomJoinedMsg struct {
	RoomID       string        `json:"roomId"`
	PlayerID     string        `json:"playerId"`
	PlayersCount int           `json:"playersCount"`
	MaxPlayers   int           `json:"maxPlayers"`
	GameState    string        `json:"gameState"`
	Players      []EntityState `json:"players"`
}

// PlayersUpdateMsg is the roster after a join or leave
type PlayersUpdateMsg struct {
	PlayersCount int           `json:"playersCount"`
	Players      []EntityState `json:"players"`
}

// PlayerJoinedMsg announces a new player to the rest of the room
type PlayerJoinedMsg struct {
	Player EntityState `json:"player"`
}

// GameStartMsg opens the play phase
type GameStartMsg struct {
	RoomID   string        `json:"roomId"`
	Players  []EntityState `json:"players"`
	Duration int64         `json:"duration"` // milliseconds
}

// PlayerMovedMsg is an incremental movement update
type PlayerMovedMsg struct {
	PlayerID  string  `json:"playerId"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Angle     float64 `json:"angle"`
	VX        float64 `json:"vx"`
	VY        float64 `json:"vy"`
	Timestamp int64   `json:"timestamp"`
}

// BulletFiredMsg announces a new bullet
type BulletFiredMsg struct {
	Bullet BulletState `json:"bullet"`
}

// AmmoUpdateMsg carries an entity's magazine and reserve
type AmmoUpdateMsg struct {
	PlayerID string `json:"playerId"`
	Ammo     int    `json:"ammo"`
	Reserve  int    `json:"reserveAmmo"`
}

// HealthUpdateMsg carries an entity's health after damage
type HealthUpdateMsg struct {
	PlayerID string `json:"playerId"`
	Health   int    `json:"health"`
}

// PlayerKilledMsg is broadcast on every kill
type PlayerKilledMsg struct {
	KillerID   string `json:"killerId"`
	KillerName string `json:"killerName"`
	VictimID   string `json:"victimId"`
	VictimName string `json:"victimName"`
}

// PlayerRespawnMsg is broadcast when a dead entity returns
type PlayerRespawnMsg struct {
	PlayerID string  `json:"playerId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Health   int     `json:"health"`
}

// PlayerLeftMsg is broadcast when a player disconnects or leaves
type PlayerLeftMsg struct {
	PlayerID string `json:"playerId"`
}

// PositionCorrectionMsg carries the authoritative transform after a rejected move
type PositionCorrectionMsg struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
}

// PositionSyncMsg is the periodic full snapshot
type PositionSyncMsg struct {
	Players   []EntityState `json:"players" msgpack:"players"`
	Timestamp int64         `json:"timestamp" msgpack:"timestamp"`
}

// FinalStat is one row of the end-of-match ranking
type FinalStat struct {
	Rank   int     `json:"rank"`
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	IsBot  bool    `json:"isBot"`
	Kills  int     `json:"kills"`
	Deaths int     `json:"deaths"`
	Score  int     `json:"score"`
	KD     float64 `json:"kd"`
}

// GameEndMsg carries the final ranking
type GameEndMsg struct {
	FinalStats []FinalStat `json:"finalStats"`
}

// MatchmakingErrorMsg tells a single requester why it was not seated
type MatchmakingErrorMsg struct {
	Reason string `json:"reason"`
}

// RoomInfo is used in the ops room list
type RoomInfo struct {
	ID       string `json:"id"`
	State    string `json:"state"`
	Entities int    `json:"entities"`
	Humans   int    `json:"humans"`
	Capacity int    `json:"capacity"`
	TimeLeft int64  `json:"timeLeftMs"`
}
