package main

import "sort"

// RoomState represents the lifecycle of a room
type RoomState int

const (
	StateWaiting  RoomState = 0
	StatePlaying  RoomState = 1
	StateFinished RoomState = 2
)

func (s RoomState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StatePlaying:
		return "playing"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// killDeathRatio treats a deathless record as kills over one
func killDeathRatio(kills, deaths int) float64 {
	if deaths == 0 {
		return float64(kills)
	}
	return float64(kills) / float64(deaths)
}

// rankEntities orders entities by score, then kills, then K/D ratio, with
// the name as a final deterministic tiebreak
func rankEntities(entities []*Entity) []FinalStat {
	sorted := make([]*Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if ka, kb := killDeathRatio(a.Kills, a.Deaths), killDeathRatio(b.Kills, b.Deaths); ka != kb {
			return ka > kb
		}
		return a.Name < b.Name
	})

	stats := make([]FinalStat, len(sorted))
	for i, e := range sorted {
		stats[i] = FinalStat{
			Rank:   i + 1,
			ID:     e.ID,
			Name:   e.Name,
			IsBot:  e.IsBot(),
			Kills:  e.Kills,
			Deaths: e.Deaths,
			Score:  e.Score,
			KD:     round2(killDeathRatio(e.Kills, e.Deaths)),
		}
	}
	return stats
}
