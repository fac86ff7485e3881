package abuse

import (
	"fmt"
	"time"

	"github.com/mezonai/powchain/logx"
)

func DefaultAbuseConfig() *AbuseConfig {
	return &AbuseConfig{
		MaxStrikes:   10,
		StrikeWindow: time.Minute,
		BanDuration:  10 * time.Minute,
	}
}

func NewAbuseDetector(config *AbuseConfig) *AbuseDetector {
	if config == nil {
		config = DefaultAbuseConfig()
	}
	return &AbuseDetector{
		config:     config,
		now:        time.Now,
		strikes:    make(map[string][]time.Time),
		flaggedIPs: make(map[string]*AbuseFlag),
		metrics:    &AbuseMetrics{},
	}
}

// RecordStrike counts one misbehaviour by ip and reports whether it got the
// ip blacklisted.
func (ad *AbuseDetector) RecordStrike(ip, reason string) bool {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	now := ad.now()
	ad.metrics.TotalStrikes++

	cutoff := now.Add(-ad.config.StrikeWindow)
	recent := ad.strikes[ip][:0]
	for _, t := range ad.strikes[ip] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	recent = append(recent, now)

	if len(recent) < ad.config.MaxStrikes {
		ad.strikes[ip] = recent
		return false
	}

	delete(ad.strikes, ip)
	ad.flagAbuse(ip, fmt.Sprintf("Auto-blacklist: %d strikes in %s, last: %s", len(recent), ad.config.StrikeWindow, reason), now)
	return true
}

func (ad *AbuseDetector) flagAbuse(ip, reason string, now time.Time) {
	flag, exists := ad.flaggedIPs[ip]
	if exists {
		flag.LastSeen = now
		flag.Count++
		flag.Reason = reason
	} else {
		flag = &AbuseFlag{
			Entity:    ip,
			Reason:    reason,
			FirstSeen: now,
			LastSeen:  now,
			Count:     1,
		}
		ad.flaggedIPs[ip] = flag
	}
	flag.Until = now.Add(ad.config.BanDuration)
	ad.metrics.AutoBlacklists++

	logx.Warn("ABUSE", fmt.Sprintf("Flagged IP %s: %s (count: %d)", ip, reason, flag.Count))
}

// IsBlacklisted reports whether ip is currently banned. Expired bans are
// dropped.
func (ad *AbuseDetector) IsBlacklisted(ip string) bool {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	flag, ok := ad.flaggedIPs[ip]
	if !ok {
		return false
	}
	if ad.now().Before(flag.Until) {
		return true
	}
	delete(ad.flaggedIPs, ip)
	logx.Info("ABUSE", "Temporary blacklist expired for:", ip)
	return false
}

// GetFlaggedIPs returns a snapshot of the flagged IPs
func (ad *AbuseDetector) GetFlaggedIPs() map[string]AbuseFlag {
	ad.mu.RLock()
	defer ad.mu.RUnlock()

	result := make(map[string]AbuseFlag, len(ad.flaggedIPs))
	for ip, flag := range ad.flaggedIPs {
		result[ip] = *flag
	}
	return result
}

// GetMetrics returns current metrics
func (ad *AbuseDetector) GetMetrics() AbuseMetrics {
	ad.mu.RLock()
	defer ad.mu.RUnlock()

	m := *ad.metrics
	m.CurrentFlags = len(ad.flaggedIPs)
	return m
}
