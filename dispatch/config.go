package dispatch

import (
	"time"

	"github.com/hairizuan-noorazman/automation-bridge/notify"
)

// Config holds the run dispatcher configuration.
type Config struct {
	// Workers is the number of pool goroutines claiming pending runs.
	Workers int

	// ItemWorkers bounds concurrent engine invocations inside one run
	// under the continue policy. Values below 2 keep items sequential.
	ItemWorkers int

	// RunTimeout caps the wall-clock time spent invoking one run's items.
	// Persistence and archiving are not bound by it, so a run that times
	// out still gets its recorded outcomes.
	RunTimeout time.Duration

	// DefaultAPIKey is the engine key for runs that name no credential.
	DefaultAPIKey string

	// MasterKey decrypts stored credential secret sets.
	MasterKey []byte

	// NotifyProvider selects the failure notification channel. ProviderNone
	// or empty disables notification.
	NotifyProvider notify.ProviderType

	// NotifyCredential names the credential holding the channel's secret
	// set. Resolved at notification time so rotations take effect without
	// a restart.
	NotifyCredential string
}
