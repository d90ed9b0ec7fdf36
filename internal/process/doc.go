// Package process runs external converters in their own process group so a
// canceled build stops the whole tree, not only the direct child.
package process
