package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docpack <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  build      Convert sources to HTML and package slide decks")
	fmt.Fprintln(w, "  package    Embed the resources of existing HTML documents")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  doctor     Check asciidoctor, reveal.js and the environment")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'docpack help <command>' for details on a specific command.")
}

// printBuildUsage prints usage for the build command.
func printBuildUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docpack build [root] [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert AsciiDoc and Markdown sources whose HTML output is missing or")
	fmt.Fprintln(w, "older than the source, then package the outputs matching package.match")
	fmt.Fprintln(w, "into self-contained documents.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  root    Source directory (default: source.root, or .)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Build:")
	fmt.Fprintln(w, "  -f, --force               Rebuild every document")
	fmt.Fprintln(w, "  -w, --watch               Rebuild on changes until interrupted")
	fmt.Fprintln(w, "      --no-package          Convert only")
	fmt.Fprintln(w, "  -j, --workers <n>         Parallel builds (0 = auto)")
	fmt.Fprintln(w, "  -t, --timeout <d>         Remote fetch timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printPackageUsage prints usage for the package command.
func printPackageUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docpack package <file.html>... [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Replace the images, stylesheets, scripts and fonts referenced by each")
	fmt.Fprintln(w, "document with inline data. Documents are rewritten in place.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Packaging:")
	fmt.Fprintln(w, "  -t, --timeout <d>         Remote fetch timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w, "      --images-dir <dir>    Directory searched first for background images")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docpack doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that the configured asciidoctor and reveal.js backend work.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "      --json                Print results as JSON")
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: docpack config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after defaults, file and DOCPACK_* variables")
	fmt.Fprintln(w, "are applied, as YAML.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show warnings and errors")
	fmt.Fprintln(w, "  -v, --verbose             Show detailed progress and timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  DOCPACK_CONFIG, DOCPACK_ROOT, DOCPACK_TIMEOUT, DOCPACK_WORKERS,")
	fmt.Fprintln(w, "  DOCPACK_ASCIIDOCTOR, DOCPACK_IMAGES_DIR, DOCPACK_NO_PACKAGE")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "build":
		printBuildUsage(env.Stdout)
	case "package":
		printPackageUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: docpack version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: docpack help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
