// Package docpack turns generated HTML documents into self-contained files.
//
// # Quick Start
//
// Create a packager and package a document in place:
//
//	p := docpack.NewPackager()
//	result, err := p.Package(ctx, "build/intro-slides.html")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, w := range result.Warnings {
//	    fmt.Println("warning:", w)
//	}
//
// A document only fails when it cannot be read or written. A resource that
// cannot be fetched or encoded produces a warning and its original markup is
// kept byte for byte.
//
// # Packaging Passes
//
// The document text goes through three passes, each consuming the output of
// the previous one:
//
//  1. Stylesheets: <link rel="stylesheet"> becomes a <style> block; url()
//     references inside local CSS become data URIs
//  2. Scripts: <script src> with a remote URL becomes an inline script; local
//     scripts stay references
//  3. Images: <img src>, inline style backgrounds and data-background-image
//     values that point to local files become data URIs
//
// The result is a fixed point: packaging a packaged document changes nothing.
//
// # Configuration
//
// Use functional options to customize the packager:
//
//	p := docpack.NewPackager(
//	    docpack.WithTimeout(10 * time.Second),
//	    docpack.WithImagesDir("assets"),
//	    docpack.WithLogger(logger),
//	)
//
// # Batch Processing
//
// A Packager keeps no per-document state and is safe for concurrent use.
// Package distinct documents from several goroutines; ResolveWorkers picks a
// sensible worker count.
package docpack
