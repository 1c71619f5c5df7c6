package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/db"
	"github.com/angelmondragon/library-backend/pkg/enums"
	"github.com/angelmondragon/library-backend/pkg/security"
)

const tempPasswordLength = 16

func (a *app) seedAdminCommand() *cobra.Command {
	var name, email string
	var generate bool

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create or promote the bootstrap admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password := ""
			if generate {
				temp, err := security.GenerateTempPassword(tempPasswordLength)
				if err != nil {
					return err
				}
				password = temp
			} else {
				read, err := promptPassword(cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				password = read
			}

			return a.withDB(cmd.Context(), func(ctx context.Context, client *db.Client, _ *sql.DB) error {
				res, err := seedAdmin(ctx, client.DB(), a.cfg.Password, name, email, password)
				if err != nil {
					return err
				}
				a.logg.Info(a.logg.WithFields(ctx, map[string]any{"user_id": res.UserID.String(), "created": res.Created}), "admin seeded")
				out := cmd.OutOrStdout()
				if res.Created {
					fmt.Fprintln(out, "created admin:", email)
				} else {
					fmt.Fprintln(out, "promoted existing user to admin:", email)
				}
				if generate && res.Created {
					fmt.Fprintln(out, "temporary password:", password)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "Administrator", "display name for a new admin")
	cmd.Flags().StringVar(&email, "email", "", "admin email")
	cmd.Flags().BoolVar(&generate, "generate-password", false, "generate a temporary password instead of prompting")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func promptPassword(out io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("stdin is not a terminal; use --generate-password")
	}
	fmt.Fprint(out, "Admin password: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

type seedResult struct {
	UserID  uuid.UUID
	Created bool
}

// seedAdmin creates the admin account, or promotes the user that already
// holds email. An existing password is left untouched.
func seedAdmin(ctx context.Context, conn *gorm.DB, passwords config.PasswordConfig, name, email, password string) (*seedResult, error) {
	email = users.NormalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	repo := users.NewRepository(conn)
	existing, err := repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != enums.UserRoleAdmin {
			if err := repo.SetRole(ctx, existing.ID, enums.UserRoleAdmin); err != nil {
				return nil, fmt.Errorf("promote admin: %w", err)
			}
		}
		return &seedResult{UserID: existing.ID}, nil
	case !db.IsNotFound(err):
		return nil, fmt.Errorf("lookup admin: %w", err)
	}

	if len(password) < security.MinPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", security.MinPasswordLength)
	}
	hash, err := security.HashPassword(password, passwords)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	created, err := repo.Create(ctx, users.CreateUserDTO{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         enums.UserRoleAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &seedResult{UserID: created.ID, Created: true}, nil
}
