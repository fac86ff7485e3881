package abuse

import (
	"sync"
	"time"
)

type AbuseDetector struct {
	mu sync.RWMutex

	config *AbuseConfig
	now    func() time.Time

	strikes    map[string][]time.Time
	flaggedIPs map[string]*AbuseFlag

	metrics *AbuseMetrics
}

type AbuseConfig struct {
	// MaxStrikes misbehaviours within StrikeWindow flag a host.
	MaxStrikes   int
	StrikeWindow time.Duration
	// BanDuration is how long a flagged host stays blacklisted.
	BanDuration time.Duration
}

type AbuseFlag struct {
	Entity    string    `json:"entity"`     // peer IP
	Reason    string    `json:"reason"`     // last misbehaviour seen
	FirstSeen time.Time `json:"first_seen"` // when first flagged
	LastSeen  time.Time `json:"last_seen"`  // when last flagged
	Count     int       `json:"count"`      // number of times flagged
	Until     time.Time `json:"until"`      // blacklist expiry
}

type AbuseMetrics struct {
	TotalStrikes   int64 `json:"total_strikes"`
	AutoBlacklists int64 `json:"auto_blacklists"`
	CurrentFlags   int   `json:"current_flags"`
}
