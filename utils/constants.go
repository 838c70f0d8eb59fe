// File: utils/constants.go
package utils

import "time"

// FlowCachePrefix is the prefix used for flow snapshot cache keys.
const FlowCachePrefix = "flow:"

// FlowCacheTTL is the time-to-live for flow snapshot entries.
const FlowCacheTTL = 30 * time.Minute

// DedupPrefix is the prefix used for webhook dedup keys.
const DedupPrefix = "whk:seen:"

// DedupTTL bounds how long a provider event id is remembered.
const DedupTTL = 24 * time.Hour
