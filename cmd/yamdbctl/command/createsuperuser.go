package command

import (
	"context"
	"errors"
	"fmt"

	"yamdb/internal/http-api/dto"
	"yamdb/internal/http-api/models"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/service"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	superUsername string
	superEmail    string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an admin superuser, or promote an existing account",
	Long: `Creates the account if the username is free, otherwise promotes it.
The account gets role admin and the superuser flag. A fresh confirmation
code is printed; exchange it at POST /v1/auth/token/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, _, err := setup()
		if err != nil {
			return err
		}

		codes := service.NewCodeGenerator(cfg.SecretKey, cfg.ConfirmationCodeTTL)
		user, code, err := createSuperuser(cmd.Context(), repository.NewUserRepository(db), codes, superUsername, superEmail)
		if err != nil {
			return err
		}
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Superuser %q (%s) is ready\n", user.Username, user.Email)
		fmt.Fprintf(cmd.OutOrStdout(), "Confirmation code: %s\n", code)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&superUsername, "username", "", "superuser username")
	createSuperuserCmd.Flags().StringVar(&superEmail, "email", "", "superuser email (required for new accounts)")
	createSuperuserCmd.MarkFlagRequired("username")
}

func createSuperuser(ctx context.Context, users repository.UserRepository, codes *service.CodeGenerator, username, email string) (*models.User, string, error) {
	if !dto.IsSlug(username) || len(username) > 150 || username == service.ReservedUsername {
		return nil, "", fmt.Errorf("invalid username %q", username)
	}
	if email != "" {
		if err := validator.New().Var(email, "email,max=254"); err != nil {
			return nil, "", fmt.Errorf("invalid email %q", email)
		}
		if other, err := users.FindByEmail(ctx, email); err == nil && other.Username != username {
			return nil, "", fmt.Errorf("email %q belongs to %q", email, other.Username)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", err
		}
	}

	user, err := users.FindByUsername(ctx, username)
	switch {
	case err == nil:
		if email != "" {
			user.Email = email
		}
		user.Role = models.RoleAdmin
		user.IsSuperuser = true
		if err := users.Update(ctx, user); err != nil {
			return nil, "", err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if email == "" {
			return nil, "", errors.New("--email is required for a new account")
		}
		user = &models.User{Username: username, Email: email, Role: models.RoleAdmin, IsSuperuser: true}
		if err := users.Create(ctx, user); err != nil {
			return nil, "", err
		}
	default:
		return nil, "", err
	}

	code, err := codes.Make(user)
	if err != nil {
		return nil, "", err
	}
	if err := users.SetConfirmationCode(ctx, user.ID, code); err != nil {
		return nil, "", err
	}
	user.ConfirmationCode = code
	return user, code, nil
}
