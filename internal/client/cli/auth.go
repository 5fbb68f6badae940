package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/leftoverchef/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for name, email and password, creates the account and
// keeps the returned token as the current session.
func (a *App) Register(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.Register(ctx, name, email, password)
	if err != nil {
		return explain(err)
	}
	if err := a.startSession(res.Token, res.User.Name); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s\n", res.User.Email)
	return nil
}

// Login prompts for credentials and saves the token to the session file.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.api.Login(ctx, email, password)
	if err != nil {
		return explain(err)
	}
	if err := a.startSession(res.Token, res.User.Name); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome back, %s!\n", res.User.Name)
	return nil
}

func (a *App) startSession(token, name string) error {
	a.api.SetToken(token)
	a.userName = name
	if err := saveSession(a.config.SessionFile, token); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout forgets the token locally. Tokens are not revoked server-side.
func (a *App) Logout(ctx context.Context) error {
	a.api.SetToken("")
	a.userName = ""
	if err := clearSession(a.config.SessionFile); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) Me(ctx context.Context) error {
	u, err := a.api.Me(ctx)
	if err != nil {
		return explain(err)
	}
	a.userName = u.Name
	fmt.Fprintf(a.out, "%s <%s>\nid: %s\nmember since: %s\n",
		u.Name, u.Email, u.ID, u.CreatedAt.Format("2006-01-02"))
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	current, err := getPassword(a.out, "Current password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(current)

	next, err := getPassword(a.out, "New password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(next)

	if err := a.api.ChangePassword(ctx, current, next); err != nil {
		return explain(err)
	}
	fmt.Fprintln(a.out, "Password updated")
	return nil
}
