// Package cli is the terminal client for Tenaplex.
package cli

import (
	"context"
	"fmt"

	"github.com/tenaplex/tenaplex/internal/client/api"
	"github.com/tenaplex/tenaplex/internal/client/iocli"
)

// Cli dispatches terminal commands against the API client.
type Cli struct {
	apiClient *api.Client
	io        iocli.IO
}

// New creates a CLI bound to an API client.
func New(apiClient *api.Client, io iocli.IO) *Cli {
	return &Cli{
		apiClient: apiClient,
		io:        io,
	}
}

// Run executes one command. Returns an error suitable for printing.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "tenants":
		return c.runTenants(ctx)
	case "register":
		return c.runRegister(ctx)
	case "login":
		return c.runLogin(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus()
	case "list":
		return c.runList(ctx)
	case "get":
		return c.runGet(ctx, args)
	case "upload":
		return c.runUpload(ctx, args)
	case "aggregate":
		return c.runAggregate(ctx, args)
	default:
		c.PrintUsage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage prints the command summary.
func (c *Cli) PrintUsage() {
	c.io.Println("Usage: tenaplex <command> [arguments]")
	c.io.Println("")
	c.io.Println("Commands:")
	c.io.Println("  tenants                          list tenants available for registration")
	c.io.Println("  register                         create an account")
	c.io.Println("  login                            log in")
	c.io.Println("  logout                           log out and revoke the session")
	c.io.Println("  status                           show the current session")
	c.io.Println("  list                             list your tenant's datasets")
	c.io.Println("  get <dataset-id>                 show a dataset")
	c.io.Println("  upload <file.csv>                upload a CSV dataset")
	c.io.Println("  aggregate <dataset-id> <group-by> <metric> [metric...]")
	c.io.Println("                                   group and aggregate a dataset")
}
