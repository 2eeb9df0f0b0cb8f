// Command xar creates, lists and extracts xar archives.
//
// Archives are read from local files, HTTP(S) URLs and s3:// URLs; only the
// header, the TOC and the requested payloads are fetched.
package main

import (
	"context"
	"fmt"
	"os"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "xar:", err)
		os.Exit(1)
	}
}
