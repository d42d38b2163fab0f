// Package cli implements the administrative command line interface.
package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/AhasnaCharumee/BookMate/internal/auth"
	"github.com/AhasnaCharumee/BookMate/internal/config"
	"github.com/AhasnaCharumee/BookMate/internal/database"
)

// CreateUserCommand creates a user account from the command line.
type CreateUserCommand struct {
	Email        string
	Password     string
	DisplayName  string
	DatabasePath string
}

// NewCreateUserCommand creates a new CreateUserCommand.
func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

// ParseFlags parses command line flags.
func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Email, "email", "", "Email address for the new account (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password for the new account (required)")
	fs.StringVar(&cmd.DisplayName, "name", "", "Display name (defaults to the email local part)")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the application database")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user account without going through the HTTP API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -email reader@example.com -password secret123\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-user -email reader@example.com -password secret123 -name Reader -db ./bookmate.db\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Email == "" {
		return fmt.Errorf("-email is required")
	}
	if cmd.Password == "" {
		return fmt.Errorf("-password is required")
	}

	return nil
}

// Run executes the create-user command.
func (cmd *CreateUserCommand) Run() error {
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cfg := config.NewConfig()
	service := auth.NewService(db.DB, cfg.Auth)

	user, err := service.Register(cmd.Email, cmd.Password, cmd.DisplayName)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created user %s (%s)\n", user.Email, user.UID)
	return nil
}
