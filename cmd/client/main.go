package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	clientapi "github.com/tenaplex/tenaplex/internal/client/api"
	"github.com/tenaplex/tenaplex/internal/client/cli"
	"github.com/tenaplex/tenaplex/internal/client/cookies"
	"github.com/tenaplex/tenaplex/internal/client/iocli"
	"github.com/tenaplex/tenaplex/internal/client/session"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	jarPath := flag.String("cookies", defaultJarPath(), "Path to the cookie store")

	flag.Parse()

	if *showVersion {
		fmt.Printf("Tenaplex Client\nVersion:    %s\nBuild Date: %s\n", Version, BuildDate)
		os.Exit(0)
	}

	io := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.New(nil, io).PrintUsage()
		os.Exit(1)
	}

	// The cookie jar is the only persistent state: it carries the refresh
	// cookie across runs. The access token lives in the session, which
	// starts empty every run and is repopulated by login or silent refresh.
	jar, err := cookies.New(*jarPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open cookie store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = jar.Close()
	}()

	apiClient := clientapi.NewClient(*serverURL, jar, session.New())
	c := cli.New(apiClient, io)

	if err := c.Run(context.Background(), args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func defaultJarPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tenaplex-cookies.db"
	}
	return home + "/.tenaplex-cookies.db"
}
