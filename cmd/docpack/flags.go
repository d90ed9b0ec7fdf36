package main

import (
	"errors"
	"io"

	flag "github.com/spf13/pflag"
)

// ErrUsage marks invalid command lines.
var ErrUsage = errors.New("invalid usage")

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// buildFlags holds all flags for the build command.
type buildFlags struct {
	common    commonFlags
	force     bool
	watch     bool
	noPackage bool
	workers   int
	timeout   string
}

// packageFlags holds all flags for the package command.
type packageFlags struct {
	common    commonFlags
	timeout   string
	imagesDir string
}

// doctorFlags holds all flags for the doctor command.
type doctorFlags struct {
	config string
	json   bool
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show warnings and errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show detailed progress and timing")
}

// newFlagSet creates a FlagSet that reports errors instead of exiting and
// prints usage to w on -h.
func newFlagSet(name string, w io.Writer, usage func(io.Writer)) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(w)
	fs.Usage = func() { usage(w) }
	return fs
}

// parseBuildFlags parses build command flags and returns positional args.
func parseBuildFlags(args []string, w io.Writer) (*buildFlags, []string, error) {
	f := &buildFlags{}
	fs := newFlagSet("build", w, printBuildUsage)

	fs.BoolVarP(&f.force, "force", "f", false, "rebuild every document, even up to date ones")
	fs.BoolVarP(&f.watch, "watch", "w", false, "rebuild on source changes until interrupted")
	fs.BoolVar(&f.noPackage, "no-package", false, "convert only, never package")
	fs.IntVarP(&f.workers, "workers", "j", 0, "parallel builds (0 = auto)")
	fs.StringVarP(&f.timeout, "timeout", "t", "", "remote fetch timeout (e.g., 30s, 2m)")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// parsePackageFlags parses package command flags and returns positional args.
func parsePackageFlags(args []string, w io.Writer) (*packageFlags, []string, error) {
	f := &packageFlags{}
	fs := newFlagSet("package", w, printPackageUsage)

	fs.StringVarP(&f.timeout, "timeout", "t", "", "remote fetch timeout (e.g., 30s, 2m)")
	fs.StringVar(&f.imagesDir, "images-dir", "", "directory searched first for background images")
	addCommonFlags(fs, &f.common)

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// parseDoctorFlags parses doctor command flags.
func parseDoctorFlags(args []string, w io.Writer) (*doctorFlags, error) {
	f := &doctorFlags{}
	fs := newFlagSet("doctor", w, printDoctorUsage)

	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVar(&f.json, "json", false, "print results as JSON")

	if err := fs.Parse(args); err != nil {
		return nil, usageError(err)
	}
	if fs.NArg() > 0 {
		return nil, errorf(ErrUsage, "doctor takes no arguments")
	}
	return f, nil
}

// usageError wraps a pflag parse error so it maps to ExitUsage.
// flag.ErrHelp passes through untouched.
func usageError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return err
	}
	return errorf(ErrUsage, "%v", err)
}
