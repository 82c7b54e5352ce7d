package main

import "math"

const obstacleCellSize = 100.0

// ObstacleIndex buckets static obstacles into a fixed grid for point and box
// queries. It is built once and never mutated, so rooms share it without
// locking.
type ObstacleIndex struct {
	obstacles []Obstacle
	cols      int
	rows      int
	cells     [][]int
}

// NewObstacleIndex builds the grid covering every obstacle in the layout
func NewObstacleIndex(layout []Obstacle) *ObstacleIndex {
	maxX, maxY := 0.0, 0.0
	for _, o := range layout {
		maxX = math.Max(maxX, o.X+o.W)
		maxY = math.Max(maxY, o.Y+o.H)
	}
	idx := &ObstacleIndex{
		obstacles: layout,
		cols:      int(maxX/obstacleCellSize) + 1,
		rows:      int(maxY/obstacleCellSize) + 1,
	}
	idx.cells = make([][]int, idx.cols*idx.rows)
	for i, o := range layout {
		minCX, minCY, maxCX, maxCY := idx.span(o.Rect)
		for cy := minCY; cy <= maxCY; cy++ {
			for cx := minCX; cx <= maxCX; cx++ {
				c := cy*idx.cols + cx
				idx.cells[c] = append(idx.cells[c], i)
			}
		}
	}
	return idx
}

func (idx *ObstacleIndex) clampCell(v float64, n int) int {
	c := int(math.Floor(v / obstacleCellSize))
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

func (idx *ObstacleIndex) span(r Rect) (minCX, minCY, maxCX, maxCY int) {
	return idx.clampCell(r.X, idx.cols), idx.clampCell(r.Y, idx.rows),
		idx.clampCell(r.X+r.W, idx.cols), idx.clampCell(r.Y+r.H, idx.rows)
}

// BlocksPoint reports whether the point lies inside any obstacle
func (idx *ObstacleIndex) BlocksPoint(x, y float64) bool {
	c := idx.clampCell(y, idx.rows)*idx.cols + idx.clampCell(x, idx.cols)
	for _, i := range idx.cells[c] {
		if idx.obstacles[i].Contains(x, y) {
			return true
		}
	}
	return false
}

// BlocksBox reports whether the rectangle overlaps any obstacle
func (idx *ObstacleIndex) BlocksBox(r Rect) bool {
	minCX, minCY, maxCX, maxCY := idx.span(r)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			for _, i := range idx.cells[cy*idx.cols+cx] {
				if idx.obstacles[i].Overlaps(r) {
					return true
				}
			}
		}
	}
	return false
}

// Obstacles returns the indexed layout
func (idx *ObstacleIndex) Obstacles() []Obstacle {
	return idx.obstacles
}
