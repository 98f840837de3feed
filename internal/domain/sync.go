package domain

import "time"

// SyncStats holds statistics about a sync run.
type SyncStats struct {
	Streams  map[string]int
	Records  int
	Duration time.Duration
}

func NewSyncStats() *SyncStats {
	return &SyncStats{Streams: make(map[string]int)}
}

func (s *SyncStats) Add(stream string, n int) {
	s.Streams[stream] += n
	s.Records += n
}
