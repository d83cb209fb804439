package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/clientkeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for email, password and an optional username and creates
// the account. The user still has to log in afterwards.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	username, err := getSimpleText(a.reader, "Username (empty to use the email)", a.out)
	if err != nil {
		return err
	}

	if err := a.auth.Register(ctx, email, password, username); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Success! Use 'login' to sign in.")
	return nil
}

// Login prompts for credentials and starts a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	u, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.setMode(ModeOnline)
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", u.DisplayName, u.Profile.Role)
	if u.ProfileFallback {
		fmt.Fprintln(a.out, "warning: profile could not be loaded, using default permissions")
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Signed out")
	return err
}

func (a *App) Whoami(ctx context.Context) error {
	u, ok := a.state.User()
	if !ok {
		return errNotSignedIn
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s id=%s\n", u.DisplayName, u.Email, u.Profile.Role, u.ID)
	return nil
}

func (a *App) Profiles(ctx context.Context) error {
	if !a.state.IsAdmin() {
		return fmt.Errorf("only admins can list profiles")
	}
	list, err := a.records.Profiles(ctx)
	if err != nil {
		return err
	}
	printProfiles(a.out, list)
	return nil
}

func (a *App) SetRole(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("role <user-id> <admin|user>")
	}
	if err := a.records.SetRole(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Role of %s set to %s\n", args[0], args[1])
	return nil
}
