// Package source fetches micro-app bundles and splits them into the
// links/scripts/fragment record the lifecycle consumes. HTML+stylesheets
// and the script set load as two independent channels that may complete
// in either order; a prefetch cache keeps compressed copies of fully
// loaded bundles.
package source
