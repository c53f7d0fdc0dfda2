// Command seed inserts the default categories and, when -admin-email is
// given, provisions an admin account. The admin password is read from
// ADMIN_PASSWORD or prompted for on the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/iliyamo/blog-api/internal/app"
	"github.com/iliyamo/blog-api/internal/config"
	"github.com/iliyamo/blog-api/internal/logging"
	"github.com/iliyamo/blog-api/internal/service"
	"github.com/iliyamo/blog-api/internal/utils"
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(out)
	adminEmail := fs.String("admin-email", "", "create an admin account with this email")
	adminName := fs.String("admin-username", "admin", "username of the admin account")
	skipCategories := fs.Bool("skip-categories", false, "do not insert the default categories")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := config.LoadEnvFile(); err != nil {
		return err
	}
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = stores.Close() }()

	if !*skipCategories {
		n, err := service.NewCategoryService(stores.Categories, log).Seed(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "inserted %d categories\n", n)
	}

	if *adminEmail == "" {
		return nil
	}
	password, err := adminPassword(out)
	if err != nil {
		return err
	}
	issuer, err := utils.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	if err != nil {
		return err
	}
	auth := service.NewAuthService(stores.Users, utils.NewPasswordHasher(cfg.BcryptCost), issuer, log)
	u, err := auth.CreateAdmin(ctx, service.RegisterInput{
		Username: *adminName,
		Email:    *adminEmail,
		Password: password,
	})
	if errors.Is(err, service.ErrAlreadyExists) {
		fmt.Fprintln(out, "admin account already exists")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "created admin %s (%s)\n", u.Username, u.ID)
	return nil
}

func adminPassword(out io.Writer) (string, error) {
	if pw := os.Getenv("ADMIN_PASSWORD"); pw != "" {
		return pw, nil
	}
	fmt.Fprint(out, "Admin password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
