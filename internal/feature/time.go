package feature

import "time"

// rfc3339 is the timestamp layout used in all persisted records.
const rfc3339 = time.RFC3339

// timeNow is a package-level variable for testability.
// Tests can replace this to control time in assertions.
var timeNow = time.Now
