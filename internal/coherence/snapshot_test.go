package coherence

import (
	"testing"
	"time"
)

func snapshotAt(taken time.Time, score float64) Snapshot {
	return Snapshot{TakenAt: taken, OverallScore: score}
}

func TestSnapshotRing_Eviction(t *testing.T) {
	r := NewSnapshotRing(3)
	now := time.Now()

	for i := 0; i < 5; i++ {
		r.Push(snapshotAt(now.Add(time.Duration(i)*time.Second), float64(i)))
	}

	if r.Len() != 3 {
		t.Fatalf("len = %d, want 3", r.Len())
	}
	scores := r.Scores()
	want := []float64{2, 3, 4}
	for i, s := range scores {
		if s != want[i] {
			t.Errorf("scores[%d] = %v, want %v", i, s, want[i])
		}
	}
}

func TestSnapshotRing_Since(t *testing.T) {
	r := NewSnapshotRing(10)
	now := time.Now()

	r.Push(snapshotAt(now.Add(-10*time.Minute), 50))
	r.Push(snapshotAt(now.Add(-5*time.Minute), 60))
	r.Push(snapshotAt(now.Add(-1*time.Minute), 70))

	recent := r.Since(now.Add(-6 * time.Minute))
	if len(recent) != 2 {
		t.Fatalf("since = %d snapshots, want 2", len(recent))
	}
	if recent[0].OverallScore != 60 || recent[1].OverallScore != 70 {
		t.Errorf("unexpected window contents: %v", recent)
	}
}

func TestSnapshotRing_Latest(t *testing.T) {
	r := NewSnapshotRing(3)
	if _, ok := r.Latest(); ok {
		t.Error("empty ring should have no latest")
	}

	now := time.Now()
	r.Push(snapshotAt(now, 10))
	r.Push(snapshotAt(now.Add(time.Second), 20))

	latest, ok := r.Latest()
	if !ok || latest.OverallScore != 20 {
		t.Errorf("latest = %v/%v, want score 20", latest, ok)
	}
}

func TestTrend_InsufficientSamples(t *testing.T) {
	r := NewSnapshotRing(10)
	now := time.Now()
	r.Push(snapshotAt(now, 80))

	trend := computeTrend(r, 30*time.Minute, now, 80)
	if trend.Direction != TrendStable || trend.Change != 0 {
		t.Errorf("single sample trend = %v/%v, want STABLE/0", trend.Direction, trend.Change)
	}
	if trend.Samples != 1 {
		t.Errorf("samples = %d, want 1", trend.Samples)
	}
	if trend.MinScore != 80 || trend.MaxScore != 80 || trend.AvgScore != 80 {
		t.Errorf("fallback stats = %v, want 80s", trend)
	}
}

func TestTrend_DeadBand(t *testing.T) {
	r := NewSnapshotRing(10)
	now := time.Now()
	r.Push(snapshotAt(now.Add(-2*time.Minute), 80.0))
	r.Push(snapshotAt(now.Add(-1*time.Minute), 81.5))

	trend := computeTrend(r, 30*time.Minute, now, 81.5)
	if trend.Direction != TrendStable {
		t.Errorf("change of 1.5 should be STABLE, got %v", trend.Direction)
	}
	if trend.Change != 1.5 {
		t.Errorf("change = %v, want 1.5", trend.Change)
	}
}

func TestTrend_Directions(t *testing.T) {
	now := time.Now()
	cases := []struct {
		first, last float64
		want        TrendDirection
	}{
		{70, 75, TrendImproving},
		{75, 70, TrendDegrading},
		{70, 72, TrendStable},   // exactly at the dead-band edge
		{72, 70, TrendStable},
		{70, 72.1, TrendImproving},
	}

	for _, tc := range cases {
		r := NewSnapshotRing(10)
		r.Push(snapshotAt(now.Add(-2*time.Minute), tc.first))
		r.Push(snapshotAt(now.Add(-1*time.Minute), tc.last))

		trend := computeTrend(r, 30*time.Minute, now, tc.last)
		if trend.Direction != tc.want {
			t.Errorf("%v -> %v: direction = %v, want %v", tc.first, tc.last, trend.Direction, tc.want)
		}
	}
}

func TestTrend_WindowFiltering(t *testing.T) {
	r := NewSnapshotRing(10)
	now := time.Now()

	// Old degradation outside the window must not count.
	r.Push(snapshotAt(now.Add(-2*time.Hour), 95))
	r.Push(snapshotAt(now.Add(-20*time.Minute), 60))
	r.Push(snapshotAt(now.Add(-10*time.Minute), 70))

	trend := computeTrend(r, 30*time.Minute, now, 70)
	if trend.Samples != 2 {
		t.Fatalf("samples = %d, want 2", trend.Samples)
	}
	if trend.Direction != TrendImproving || trend.Change != 10 {
		t.Errorf("trend = %v/%v, want IMPROVING/10", trend.Direction, trend.Change)
	}
	if trend.MinScore != 60 || trend.MaxScore != 70 || trend.AvgScore != 65 {
		t.Errorf("window stats = %+v", trend)
	}
}
