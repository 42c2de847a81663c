package cli

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/dmitrijs2005/labandina/internal/client/api"
	"github.com/dmitrijs2005/labandina/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errNotLoggedIn = errors.New("not logged in")

// Register prompts for the account fields, creates the account and keeps
// the returned session.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	username, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	fullName, err := getSimpleText(a.reader, "Enter full name (optional)", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, tokens, err := a.api.Register(ctx, email, username, string(password), fullName)
	if err != nil {
		log.Printf("Registration unsuccessful: %s", err.Error())
		return err
	}

	if err := a.keep(user.Username, tokens); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Success!")
	return nil
}

// Login prompts for a user name or email and a password.
func (a *App) Login(ctx context.Context) error {
	login, err := getSimpleText(a.reader, "Enter user name or email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	tokens, err := a.api.Login(ctx, login, string(password))
	if err != nil {
		log.Printf("Login unsuccessful: %s", err.Error())
		return err
	}

	if err := a.keep(login, tokens); err != nil {
		return err
	}
	log.Printf("Login successful")
	return nil
}

// WhoAmI prints the current profile. A rejected access token is refreshed
// once before giving up.
func (a *App) WhoAmI(ctx context.Context) error {
	if a.session == nil {
		return errNotLoggedIn
	}

	user, err := a.api.Me(ctx, a.session.AccessToken)
	if errors.Is(err, api.ErrUnauthorized) && a.session.RefreshToken != "" {
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		user, err = a.api.Me(ctx, a.session.AccessToken)
	}
	if err != nil {
		log.Printf("whoami failed: %s", err.Error())
		return err
	}

	a.session.Username = user.Username
	fmt.Fprintf(a.out, "%s <%s> id=%s\n", user.Username, user.Email, user.ID)
	return nil
}

// Refresh trades the refresh token for a new pair. A refused refresh token
// ends the session.
func (a *App) Refresh(ctx context.Context) error {
	if a.session == nil || a.session.RefreshToken == "" {
		return errNotLoggedIn
	}

	tokens, err := a.api.Refresh(ctx, a.session.RefreshToken)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) {
			log.Printf("Session expired, please log in again")
			a.session = nil
			_ = removeSession(a.config.SessionFile)
		}
		return err
	}

	return a.keep(a.session.Username, tokens)
}

// Logout asks the server to revoke the session and forgets it locally even
// when the server cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if a.session == nil {
		return nil
	}

	err := a.api.Logout(ctx, a.session.AccessToken, a.session.RefreshToken)
	if err != nil {
		log.Printf("server logout failed: %s", err.Error())
	}

	a.session = nil
	return errors.Join(err, removeSession(a.config.SessionFile))
}

func (a *App) keep(username string, tokens *api.Tokens) error {
	a.session = &Session{
		Username:     username,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}
	return saveSession(a.config.SessionFile, a.session)
}
