package listener

// Source is the capability set every listener implements. The gateway loop
// calls Run and Read on each active source every tick, Set whenever
// configuration changes, and Close exactly once at shutdown.
//
// All methods must return promptly; Read never blocks waiting for data.
// Close is idempotent and safe even when the underlying transport was never
// fully opened.
type Source interface {
	// Name returns the configured listener name, used for logging,
	// settings routing and upstream attribution.
	Name() string

	// Read returns one decoded Reading, or nil when no complete frame is
	// available this tick. Recoverable trouble is logged internally.
	Read() *Reading

	// Set applies named configuration values. Unknown keys are ignored;
	// re-supplying an unchanged value is a no-op.
	Set(options map[string]string)

	// Run performs any time-driven background action. Cheap enough to
	// call on every loop iteration; a no-op for most sources.
	Run()

	// Close releases the underlying transport.
	Close() error
}
