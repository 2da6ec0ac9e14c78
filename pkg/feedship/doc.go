// Package feedship provides an embeddable launch-and-sync orchestrator for
// client applications backed by a remote service.
//
// On every launch feedship reads the persisted settings, points its HTTP
// adapters at the configured backend, refreshes the access token in the
// background, asks the host to present its initial screen, wipes stale
// credentials on the very first launch and, when a user session exists,
// resolves the feed id and uploads the four queued data categories (assets,
// events, contacts, reminders) independently of each other.
//
// # Basic Usage
//
//	cfg := feedship.Config{
//	    DataDir:    "/var/lib/myapp/feedship",
//	    Passphrase: deviceSecret,
//	    ServiceURL: "https://api.example.com",
//	}
//
//	f, err := feedship.New(cfg, feedship.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	f.OnApplicationLaunch(ctx) // always true
//
//	// ... run until shutdown signal ...
//
//	if err := f.Shutdown(10 * time.Second); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Failure Policy
//
// Nothing that happens during launch is fatal. A failed settings read keeps
// the configured ServiceURL, a failed token refresh or feed id lookup only
// skips what depends on it, and one failed category upload never affects
// the others. Every failure is logged with its operation name and reported
// to the [EventHandler].
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler] for defaults) and
// pass it via [WithEventHandler]. Events are delivered from background
// goroutines; implementations must return quickly.
//
// # Plugins
//
// Plugins receive a [Syncer] so they can re-run the upload path while the
// host keeps running, and a [QueueMaintainer] to bound the local queue:
//
//	import (
//	    "github.com/bft-labs/feedship/plugins/queuecleanup"
//	    "github.com/bft-labs/feedship/plugins/queuewatcher"
//	)
//
//	f, err := feedship.New(cfg,
//	    queuewatcher.WithQueueWatcher(queuewatcher.DefaultConfig()),
//	    queuecleanup.WithDefaultQueueCleanup(),
//	)
//
// # Lifecycle States
//
// A Feedship instance can be in one of five states: [StateStopped],
// [StateStarting], [StateRunning], [StateStopping], or [StateCrashed]. Use
// [Feedship.Status] to query the current state.
package feedship
