// Package timeouts defines shared timeout constants used by the photos
// commands.
package timeouts

import "time"

// Command caps a whole migrate or seed run unless overridden by
// PHOTOS_COMMAND_TIMEOUT.
const Command = 2 * time.Minute

// TelemetryShutdown limits how long span export may block process exit.
const TelemetryShutdown = 5 * time.Second

// SQLiteBusy is how long a statement waits on a locked database before
// failing with SQLITE_BUSY.
const SQLiteBusy = 5 * time.Second
