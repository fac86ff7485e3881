package abuse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestDetector(maxStrikes int) (*AbuseDetector, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	ad := NewAbuseDetector(&AbuseConfig{
		MaxStrikes:   maxStrikes,
		StrikeWindow: time.Minute,
		BanDuration:  5 * time.Minute,
	})
	ad.now = clock.now
	return ad, clock
}

func TestStrikesFlagHost(t *testing.T) {
	ad, _ := newTestDetector(3)

	assert.False(t, ad.RecordStrike("10.0.0.1", "garbage"))
	assert.False(t, ad.RecordStrike("10.0.0.1", "garbage"))
	assert.False(t, ad.IsBlacklisted("10.0.0.1"))
	assert.True(t, ad.RecordStrike("10.0.0.1", "garbage"))

	assert.True(t, ad.IsBlacklisted("10.0.0.1"))
	assert.False(t, ad.IsBlacklisted("10.0.0.2"))

	flags := ad.GetFlaggedIPs()
	assert.Equal(t, 1, flags["10.0.0.1"].Count)
	m := ad.GetMetrics()
	assert.Equal(t, int64(3), m.TotalStrikes)
	assert.Equal(t, int64(1), m.AutoBlacklists)
	assert.Equal(t, 1, m.CurrentFlags)
}

func TestStrikesOutsideWindowAreForgotten(t *testing.T) {
	ad, clock := newTestDetector(2)

	assert.False(t, ad.RecordStrike("10.0.0.1", "garbage"))
	clock.t = clock.t.Add(2 * time.Minute)
	assert.False(t, ad.RecordStrike("10.0.0.1", "garbage"))
	assert.True(t, ad.RecordStrike("10.0.0.1", "garbage"))
}

func TestBanExpires(t *testing.T) {
	ad, clock := newTestDetector(1)

	assert.True(t, ad.RecordStrike("10.0.0.1", "garbage"))
	assert.True(t, ad.IsBlacklisted("10.0.0.1"))

	clock.t = clock.t.Add(6 * time.Minute)
	assert.False(t, ad.IsBlacklisted("10.0.0.1"))
	assert.Empty(t, ad.GetFlaggedIPs())
}
