// Command onsalebot watches the Chelsea FC on-sale dates page and posts a
// notification for every fixture row that appears or changes.
//
//	onsalebot run               one pass, then exit (cron jobs, CI)
//	onsalebot run --validate    check the configuration and exit
//	onsalebot serve             scheduler + HTTP on-demand trigger
//	onsalebot extract --url ... print the tables the extractor sees
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
