// Package ratelimit paces actions against the automation session.
//
// Two algorithms are available: a token bucket that refills in full every
// period, and a sliding window that admits at most N actions in any window.
// FromConfig picks one from config.RateLimitConfig; a rate of zero returns
// Unlimited. Wait takes a context so a cancelled run stops pacing at once.
package ratelimit
