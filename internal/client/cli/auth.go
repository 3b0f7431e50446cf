package cli

import (
	"context"
	"fmt"

	"github.com/tenaplex/tenaplex/internal/validation"
	"github.com/tenaplex/tenaplex/pkg/api"
)

func (c *Cli) runTenants(ctx context.Context) error {
	tenants, err := c.apiClient.Tenants(ctx)
	if err != nil {
		return err
	}

	if len(tenants) == 0 {
		c.io.Println("No tenants available.")
		return nil
	}

	c.io.Println("Available tenants:")
	for _, t := range tenants {
		c.io.Printf("  %s  %s\n", t.ID, t.Name)
	}

	return nil
}

func (c *Cli) runRegister(ctx context.Context) error {
	c.io.Println("=== Register ===")

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	tenantID, err := c.io.ReadInput("Tenant ID (see 'tenants'): ")
	if err != nil {
		return fmt.Errorf("failed to read tenant id: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}

	resp, err := c.apiClient.Register(ctx, api.RegisterRequest{
		Email:    email,
		Password: password,
		TenantID: tenantID,
	})
	if err != nil {
		return err
	}

	c.io.Println("Registered and logged in.")
	c.io.Printf("User:   %s\n", resp.Email)
	c.io.Printf("Tenant: %s\n", resp.TenantID)

	return nil
}

func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	resp, err := c.apiClient.Login(ctx, api.LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return err
	}

	c.io.Println("Login successful.")
	c.io.Printf("User:   %s\n", resp.Email)
	c.io.Printf("Tenant: %s\n", resp.TenantID)

	return nil
}

func (c *Cli) runLogout(ctx context.Context) error {
	if err := c.apiClient.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("Logged out.")
	return nil
}

func (c *Cli) runStatus() error {
	identity, ok := c.apiClient.Session().Identity()
	if !ok {
		c.io.Println("Not logged in (no access token in memory).")
		c.io.Println("A stored refresh cookie, if any, will be used on the next command.")
		return nil
	}

	c.io.Println("Logged in.")
	c.io.Printf("User:   %s (%s)\n", identity.Email, identity.UserID)
	c.io.Printf("Tenant: %s\n", identity.TenantID)

	return nil
}
