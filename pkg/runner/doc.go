/*
Package runner serves Arbor apps as standalone processes.

It owns the listener: ports are tried in a bounded range, the server shuts down
gracefully when the context ends, and one-shot apps release the listener as soon as
their single submission has been captured.

# Usage

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Long-running
	err := runner.Serve(ctx, http.NewServer(app), runner.WithPortRange(8080, 10))

	// One-shot: block until the user submits, then return the captured Store.
	store, err := runner.RunOnce(ctx, app, runner.WithTimeout(5*time.Minute))
*/
package runner
