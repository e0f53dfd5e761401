package coherence

import (
	"time"
)

// SnapshotCapacity is the maximum number of retained snapshots.
const SnapshotCapacity = 1000

// Snapshot is a point-in-time capture of team coherence, used for trend
// analysis.
type Snapshot struct {
	TakenAt      time.Time          `json:"taken_at"`
	OverallScore float64            `json:"overall_score"`
	AgentScores  map[string]float64 `json:"agent_scores"`
	ActiveAgents int                `json:"active_agents"`
	TotalAgents  int                `json:"total_agents"`
	AlertsActive int                `json:"alerts_active"`
}

// SnapshotRing is a fixed-size ring buffer of snapshots. When full, the
// oldest snapshot is evicted first: what matters for trend analysis is
// recency of capture, not of access. The Monitor's lock guards all access;
// the ring itself is not synchronized.
type SnapshotRing struct {
	data     []Snapshot
	capacity int
	head     int // next write position
	size     int
}

// NewSnapshotRing creates a ring with the given capacity.
func NewSnapshotRing(capacity int) *SnapshotRing {
	if capacity <= 0 {
		capacity = SnapshotCapacity
	}
	return &SnapshotRing{
		data:     make([]Snapshot, capacity),
		capacity: capacity,
	}
}

// Push appends a snapshot, evicting the oldest if at capacity.
func (r *SnapshotRing) Push(s Snapshot) {
	r.data[r.head] = s
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// All returns the retained snapshots in capture order.
func (r *SnapshotRing) All() []Snapshot {
	if r.size == 0 {
		return nil
	}

	result := make([]Snapshot, r.size)
	oldest := (r.head - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		result[i] = r.data[(oldest+i)%r.capacity]
	}
	return result
}

// Since returns snapshots taken at or after the given time, in capture
// order.
func (r *SnapshotRing) Since(cutoff time.Time) []Snapshot {
	var result []Snapshot
	oldest := (r.head - r.size + r.capacity) % r.capacity
	for i := 0; i < r.size; i++ {
		s := r.data[(oldest+i)%r.capacity]
		if !s.TakenAt.Before(cutoff) {
			result = append(result, s)
		}
	}
	return result
}

// Scores returns the overall scores of all retained snapshots in capture
// order, suitable for passing directly to asciigraph.Plot.
func (r *SnapshotRing) Scores() []float64 {
	snapshots := r.All()
	if len(snapshots) == 0 {
		return nil
	}
	result := make([]float64, len(snapshots))
	for i, s := range snapshots {
		result[i] = s.OverallScore
	}
	return result
}

// Latest returns the most recent snapshot. The second return is false when
// the ring is empty.
func (r *SnapshotRing) Latest() (Snapshot, bool) {
	if r.size == 0 {
		return Snapshot{}, false
	}
	return r.data[(r.head-1+r.capacity)%r.capacity], true
}

// Len returns the number of retained snapshots.
func (r *SnapshotRing) Len() int {
	return r.size
}

// Clear drops all snapshots.
func (r *SnapshotRing) Clear() {
	r.head = 0
	r.size = 0
	for i := range r.data {
		r.data[i] = Snapshot{}
	}
}

// TrendDirection classifies a score trend over a time window.
type TrendDirection string

const (
	TrendImproving TrendDirection = "IMPROVING"
	TrendStable    TrendDirection = "STABLE"
	TrendDegrading TrendDirection = "DEGRADING"
)

// trendDeadBand is the minimum absolute score change that counts as a
// trend; smaller movements are noise.
const trendDeadBand = 2.0

// TrendReport summarizes score movement over a window of snapshots.
type TrendReport struct {
	Direction TrendDirection `json:"trend"`
	Change    float64        `json:"change"`
	Samples   int            `json:"samples"`
	MinScore  float64        `json:"min_score"`
	MaxScore  float64        `json:"max_score"`
	AvgScore  float64        `json:"avg_score"`
}

// computeTrend analyzes the snapshots within the window ending at now.
// With fewer than two qualifying snapshots the trend is STABLE with zero
// change, and the min/max/avg report the fallback score (the current team
// score, supplied by the caller).
func computeTrend(ring *SnapshotRing, window time.Duration, now time.Time, fallbackScore float64) TrendReport {
	recent := ring.Since(now.Add(-window))

	if len(recent) < 2 {
		return TrendReport{
			Direction: TrendStable,
			Change:    0,
			Samples:   len(recent),
			MinScore:  fallbackScore,
			MaxScore:  fallbackScore,
			AvgScore:  fallbackScore,
		}
	}

	first := recent[0].OverallScore
	last := recent[len(recent)-1].OverallScore
	change := round1(last - first)

	direction := TrendStable
	if change > trendDeadBand {
		direction = TrendImproving
	} else if change < -trendDeadBand {
		direction = TrendDegrading
	}

	min, max, sum := recent[0].OverallScore, recent[0].OverallScore, 0.0
	for _, s := range recent {
		if s.OverallScore < min {
			min = s.OverallScore
		}
		if s.OverallScore > max {
			max = s.OverallScore
		}
		sum += s.OverallScore
	}

	return TrendReport{
		Direction: direction,
		Change:    change,
		Samples:   len(recent),
		MinScore:  min,
		MaxScore:  max,
		AvgScore:  round1(sum / float64(len(recent))),
	}
}
