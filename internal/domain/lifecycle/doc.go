// Package lifecycle implements the per-app state machine driving
// loading, mounting, running, and unmounting of a micro app.
//
// The machine moves through not_loaded -> loading_source_code ->
// {load_source_finished | load_source_error} -> mounting -> mounted ->
// unmount, with an orthogonal keep-alive sub-state for hide/show cycles.
// Source loading completes over two independent channels; mounting waits
// for both. Bundles exporting mount/unmount functions are detected after
// script execution and remounted from a sandbox snapshot without
// re-running scripts. Because unmount may be requested while a load or a
// hook result is still pending, every asynchronous completion
// re-validates the current state before mutating anything.
package lifecycle
