package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/urbanpatch/urbanpatch-go/internal/api"
	"github.com/urbanpatch/urbanpatch-go/internal/apperror"
)

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := commandFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		v, err := a.promptLine("Name")
		if err != nil {
			return err
		}
		*name = v
	}
	if *email == "" {
		v, err := a.promptLine("Email")
		if err != nil {
			return err
		}
		*email = v
	}
	password, err := a.promptLine("Password")
	if err != nil {
		return err
	}
	confirm, err := a.promptLine("Confirm password")
	if err != nil {
		return err
	}

	result, err := a.client.Register(ctx, api.Registration{
		Name:     *name,
		Email:    *email,
		Password: password,
	}, confirm)
	if err != nil {
		return err
	}

	if err := a.saveSession(result); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s. You are signed in as %s (%s).\n",
		result.User.Name, result.User.Email, result.User.Role)
	return nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := commandFlags("login")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *email == "" {
		v, err := a.promptLine("Email")
		if err != nil {
			return err
		}
		*email = v
	}
	password, err := a.promptLine("Password")
	if err != nil {
		return err
	}

	result, err := a.client.Login(ctx, api.Credentials{
		Email:    *email,
		Password: password,
	})
	if err != nil {
		return err
	}

	if err := a.saveSession(result); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s).\n", result.User.Email, result.User.Role)
	return nil
}

// saveSession persists the token and profile from a login or register.
func (a *app) saveSession(result *api.AuthResult) error {
	if err := a.session.SaveToken(result.Token); err != nil {
		return err
	}
	return a.session.SaveUser(&result.User)
}

func (a *app) cmdLogout(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("logout takes no arguments")
	}
	if err := a.session.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// cmdWhoami shows the signed-in account. It asks the server so a stale
// cached profile (or a revoked account) is caught, then refreshes the cache.
func (a *app) cmdWhoami(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("whoami takes no arguments")
	}
	if _, ok := a.session.Token(); !ok {
		return apperror.Unauthorized("not signed in")
	}

	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	if err := a.session.SaveUser(user); err != nil {
		a.logger.Warn("failed to refresh cached profile", slog.String("error", err.Error()))
	}

	fmt.Fprintf(a.out, "%s <%s>\nrole: %s\n", user.Name, user.Email, user.Role)
	if id, err := a.session.Identity(); err == nil && !id.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, "session expires: %s\n", id.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}

func (a *app) cmdProfile(ctx context.Context, args []string) error {
	fs := commandFlags("profile")
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" && *email == "" {
		return fmt.Errorf("profile needs --name or --email")
	}

	user, err := a.client.UpdateProfile(ctx, api.ProfileUpdate{
		Name:  *name,
		Email: *email,
	})
	if err != nil {
		return err
	}
	if err := a.session.SaveUser(user); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Profile updated: %s <%s>\n", user.Name, user.Email)
	return nil
}

func (a *app) cmdPasswd(ctx context.Context, args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("passwd takes no arguments")
	}

	current, err := a.promptLine("Current password")
	if err != nil {
		return err
	}
	next, err := a.promptLine("New password")
	if err != nil {
		return err
	}
	confirm, err := a.promptLine("Confirm new password")
	if err != nil {
		return err
	}
	if next != confirm {
		return apperror.ValidationFailed("confirmPassword", "passwords do not match")
	}

	if err := a.client.ChangePassword(ctx, current, next); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password changed. Your current session remains valid.")
	return nil
}
