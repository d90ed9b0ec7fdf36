// Package build converts a tree of document sources to HTML and packages
// the generated pages that match the configured globs.
//
// A build has three steps: Discover walks the source root, Plan keeps the
// sources whose HTML is missing or older than the source, and Execute runs
// the jobs on a bounded worker pool. One failing document never stops the
// others.
package build
