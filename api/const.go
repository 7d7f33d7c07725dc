package api

import "time"

const (
	sessionCookieName   = "sessionId"
	sessionCookieMaxAge = 30 * 24 * time.Hour

	channelTypes        = "public_channel,private_channel"
	channelListLimit    = 100
	connectionTestLimit = 10
	connectionTestShown = 5

	maxRequestBodyBytes = 1 << 20

	successPath = "/success"
)
