package p2p

import (
	"sync"

	"github.com/mezonai/powchain/abuse"
	"github.com/mezonai/powchain/logx"
	"github.com/mezonai/powchain/ratelimit"
)

// AccessPolicy decides which inbound connections and messages are served.
type AccessPolicy interface {
	AllowConnection(host string) bool
	AllowMessage(host string, msgType MessageType) bool
	// ReportMisbehavior is told about unreadable or malformed messages.
	ReportMisbehavior(host, reason string)
}

// OpenPolicy serves everyone.
type OpenPolicy struct{}

func (OpenPolicy) AllowConnection(string) bool { return true }

func (OpenPolicy) AllowMessage(string, MessageType) bool { return true }

func (OpenPolicy) ReportMisbehavior(string, string) {}

// IPAccessControl filters peers by IP and throttles get_chain requests, the
// only message that makes the node serialize its whole chain.
type IPAccessControl struct {
	listMu    sync.RWMutex
	allowlist map[string]bool
	blacklist map[string]bool

	chainLimiter *ratelimit.RateLimiter
	detector     *abuse.AbuseDetector
}

// NewIPAccessControl builds a policy from the given lists. An empty allowlist
// admits every host that is not blacklisted. limiter and detector may be nil;
// with a detector, hosts that keep sending malformed messages are banned for
// a while.
func NewIPAccessControl(allowed, denied []string, limiter *ratelimit.RateLimiter, detector *abuse.AbuseDetector) *IPAccessControl {
	ac := &IPAccessControl{
		allowlist:    make(map[string]bool, len(allowed)),
		blacklist:    make(map[string]bool, len(denied)),
		chainLimiter: limiter,
		detector:     detector,
	}
	for _, ip := range allowed {
		ac.allowlist[ip] = true
	}
	for _, ip := range denied {
		ac.blacklist[ip] = true
	}
	logx.Info("ACCESS CONTROL", "Initialized allowlist and blacklist: allowed=", len(allowed), " denied=", len(denied))
	return ac
}

func (ac *IPAccessControl) AllowConnection(host string) bool {
	if ac.detector != nil && ac.detector.IsBlacklisted(host) {
		return false
	}

	ac.listMu.RLock()
	defer ac.listMu.RUnlock()

	if ac.blacklist[host] {
		return false
	}
	if len(ac.allowlist) == 0 {
		return true
	}
	return ac.allowlist[host]
}

func (ac *IPAccessControl) ReportMisbehavior(host, reason string) {
	if ac.detector == nil {
		return
	}
	if ac.detector.RecordStrike(host, reason) {
		logx.Warn("ACCESS CONTROL", "Temporarily banned misbehaving peer:", host)
	}
}

func (ac *IPAccessControl) AllowMessage(host string, msgType MessageType) bool {
	if msgType != MessageGetChain || ac.chainLimiter == nil {
		return true
	}
	return ac.chainLimiter.Allow(host)
}

func (ac *IPAccessControl) AddToAllowlist(host string) {
	ac.listMu.Lock()
	defer ac.listMu.Unlock()

	if ac.allowlist[host] {
		return
	}
	ac.allowlist[host] = true
	logx.Info("ACCESS CONTROL", "Added peer to allowlist:", host)
}

func (ac *IPAccessControl) AddToBlacklist(host string) {
	ac.listMu.Lock()
	ac.blacklist[host] = true
	ac.listMu.Unlock()

	logx.Info("ACCESS CONTROL", "Added peer to blacklist:", host)
}

func (ac *IPAccessControl) RemoveFromBlacklist(host string) {
	ac.listMu.Lock()
	delete(ac.blacklist, host)
	ac.listMu.Unlock()
}

// Stop releases the limiter's cleanup goroutine.
func (ac *IPAccessControl) Stop() {
	if ac.chainLimiter != nil {
		ac.chainLimiter.Stop()
	}
}
