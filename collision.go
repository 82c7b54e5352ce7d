package main

import "math"

// Rect is an axis-aligned rectangle with its origin at the top-left corner
type Rect struct {
	X, Y, W, H float64
}

// Contains reports whether the point lies inside or on the edge of r
func (r Rect) Contains(px, py float64) bool {
	return px >= r.X && px <= r.X+r.W && py >= r.Y && py <= r.Y+r.H
}

// Overlaps reports whether r and o share interior area
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.W && r.X+r.W > o.X && r.Y < o.Y+o.H && r.Y+r.H > o.Y
}

// BoxAround returns the square of half-extent half centred on (x, y)
func BoxAround(x, y, half float64) Rect {
	return Rect{X: x - half, Y: y - half, W: 2 * half, H: 2 * half}
}

// ObstacleKind tags an obstacle for the client renderer
type ObstacleKind string

const (
	KindBuilding ObstacleKind = "building"
	KindCrate    ObstacleKind = "crate"
	KindWall     ObstacleKind = "wall"
	KindTree     ObstacleKind = "tree"
)

// Obstacle is a static blocking rectangle
type Obstacle struct {
	Rect
	Kind ObstacleKind
}

// Vec2 is a point on the map
type Vec2 struct {
	X, Y float64
}

// obstacleLayout is the fixed arena layout shared by every room
var obstacleLayout = []Obstacle{
	// central building
	{Rect{500, 300, 120, 80}, KindBuilding},
	{Rect{550, 250, 80, 40}, KindBuilding},
	// corner structures
	{Rect{100, 100, 60, 60}, KindBuilding},
	{Rect{1040, 100, 60, 60}, KindBuilding},
	{Rect{100, 640, 60, 60}, KindBuilding},
	{Rect{1040, 640, 60, 60}, KindBuilding},
	{Rect{300, 200, 30, 30}, KindCrate},
	{Rect{800, 300, 30, 30}, KindCrate},
	{Rect{200, 500, 30, 30}, KindCrate},
	{Rect{900, 500, 30, 30}, KindCrate},
	{Rect{400, 150, 100, 20}, KindWall},
	{Rect{700, 150, 100, 20}, KindWall},
	{Rect{400, 600, 100, 20}, KindWall},
	{Rect{700, 600, 100, 20}, KindWall},
	{Rect{250, 350, 25, 25}, KindTree},
	{Rect{950, 200, 25, 25}, KindTree},
	{Rect{150, 300, 25, 25}, KindTree},
	{Rect{850, 450, 25, 25}, KindTree},
}

// spawnPoints are hand-picked open spots; candidates are still validated
var spawnPoints = []Vec2{
	{80, 80}, {250, 50}, {450, 80}, {750, 50}, {950, 80}, {1120, 80},
	{50, 250}, {350, 350}, {650, 400}, {950, 350}, {1150, 250},
	{80, 720}, {250, 750}, {450, 720}, {750, 750}, {950, 720}, {1120, 720},
	{200, 400}, {400, 500}, {800, 200}, {1000, 600}, {300, 650}, {700, 450},
}

// defaultSpawn is the fallback corner when every candidate is blocked
var defaultSpawn = Vec2{50, 50}

// arena is the read-only obstacle index shared by all rooms
var arena = NewObstacleIndex(obstacleLayout)

// InBounds reports whether a box of half-extent radius centred on (x, y)
// lies fully inside a w by h map
func InBounds(x, y, radius, w, h float64) bool {
	return x-radius >= 0 && x+radius <= w && y-radius >= 0 && y+radius <= h
}

// LineOfSight samples the segment between two points and reports false if
// any sample lands inside an obstacle
func LineOfSight(x1, y1, x2, y2 float64, samples int) bool {
	if samples < 1 {
		samples = 1
	}
	dx := (x2 - x1) / float64(samples)
	dy := (y2 - y1) / float64(samples)
	for i := 1; i < samples; i++ {
		if arena.BlocksPoint(x1+dx*float64(i), y1+dy*float64(i)) {
			return false
		}
	}
	return true
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// nearestLiving returns the closest living entity other than self, or nil
func nearestLiving(self *Entity, entities map[string]*Entity) (*Entity, float64) {
	var best *Entity
	bestDist := math.MaxFloat64
	for _, e := range entities {
		if e == self || !e.Alive() {
			continue
		}
		if d := Distance(self.X, self.Y, e.X, e.Y); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}
