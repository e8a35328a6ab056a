package storage

import "time"

// Hit is one counted request in a rate-limit window.
type Hit struct {
	ID    string `db:"id"`
	Key   string `db:"key"`
	HitAt int64  `db:"hit_at"` // unix microseconds
}

func (h Hit) Time() time.Time {
	return time.UnixMicro(h.HitAt)
}

// HitWindow summarizes a key's hits inside the window after a TakeHit.
type HitWindow struct {
	Allowed bool
	// Count includes the hit just taken when Allowed.
	Count  int
	Oldest time.Time
}
