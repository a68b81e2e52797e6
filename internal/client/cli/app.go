package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/recipehub/internal/client/client"
	"github.com/dmitrijs2005/recipehub/internal/client/config"
)

// API is the part of the HTTP client the commands use.
type API interface {
	Register(ctx context.Context, r client.RegisterRequest) (*client.User, error)
	Login(ctx context.Context, identity, password string) (*client.User, error)
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*client.User, error)
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
	UpdateAccountDetails(ctx context.Context, fullName, email string) (*client.User, error)
	UpdateAvatar(ctx context.Context, path string) (*client.User, error)
	UpdateCoverImage(ctx context.Context, path string) (*client.User, error)
	LoggedIn() bool
}

type App struct {
	config   *config.Config
	api      API
	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	api, err := client.NewAPIClient(c.ServerURL, c.RequestTimeout)
	if err != nil {
		return nil, err
	}
	return &App{config: c, api: api, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

// Run starts the REPL and blocks until the user exits.
func (a *App) Run(ctx context.Context) {
	printlnFn("RecipeHub client, server", a.config.ServerURL)
	runREPL(ctx, a, a.status, bufio.NewScanner(a.reader))
}

func (a *App) status() string {
	if a.isLoggedIn() {
		return a.userName
	}
	return "guest"
}

func (a *App) isLoggedIn() bool {
	return a.api.LoggedIn()
}

// report prints err in a form suited to the terminal and returns it.
func (a *App) report(err error) error {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		fmt.Fprintln(a.out, "Error:", apiErr.Message)
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintln(a.out, "Error: server unavailable")
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
	return err
}

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) Register(ctx context.Context) error {
	var r client.RegisterRequest
	var err error

	for _, f := range []struct {
		prompt string
		dst    *string
	}{
		{"Username", &r.Username},
		{"Email", &r.Email},
		{"Full name (optional)", &r.FullName},
		{"Avatar image path", &r.AvatarPath},
		{"Cover image path (optional)", &r.CoverImagePath},
	} {
		if *f.dst, err = a.ask(f.prompt); err != nil {
			return a.report(err)
		}
	}

	if r.Password, err = GetConfirmedPassword("Password", a.out); err != nil {
		return a.report(err)
	}

	u, err := a.api.Register(ctx, r)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Registered %s, you can log in now\n", u.Username)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	identity, err := a.ask("Username or email")
	if err != nil {
		return a.report(err)
	}
	password, err := GetPassword("Password", a.out)
	if err != nil {
		return a.report(err)
	}

	u, err := a.api.Login(ctx, identity, password)
	if err != nil {
		return a.report(err)
	}
	a.userName = u.Username
	fmt.Fprintf(a.out, "Logged in as %s\n", u.Username)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	u, err := a.api.CurrentUser(ctx)
	if err != nil {
		return a.report(err)
	}
	a.printUser(u)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.api.Refresh(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) ChangePassword(ctx context.Context) error {
	oldPassword, err := GetPassword("Current password", a.out)
	if err != nil {
		return a.report(err)
	}
	newPassword, err := GetConfirmedPassword("New password", a.out)
	if err != nil {
		return a.report(err)
	}

	if err := a.api.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Password changed")
	return nil
}

func (a *App) UpdateDetails(ctx context.Context) error {
	fullName, err := a.ask("New full name (empty to keep)")
	if err != nil {
		return a.report(err)
	}
	email, err := a.ask("New email (empty to keep)")
	if err != nil {
		return a.report(err)
	}

	u, err := a.api.UpdateAccountDetails(ctx, fullName, email)
	if err != nil {
		return a.report(err)
	}
	a.printUser(u)
	return nil
}

func (a *App) UpdateAvatar(ctx context.Context) error {
	return a.updateMedia(ctx, "Avatar image path", a.api.UpdateAvatar)
}

func (a *App) UpdateCover(ctx context.Context) error {
	return a.updateMedia(ctx, "Cover image path", a.api.UpdateCoverImage)
}

func (a *App) updateMedia(ctx context.Context, prompt string,
	update func(ctx context.Context, path string) (*client.User, error)) error {
	path, err := a.ask(prompt)
	if err != nil {
		return a.report(err)
	}
	u, err := update(ctx, path)
	if err != nil {
		return a.report(err)
	}
	a.printUser(u)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.userName = ""
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) printUser(u *client.User) {
	fmt.Fprintf(a.out, "id:       %s\n", u.ID)
	fmt.Fprintf(a.out, "username: %s\n", u.Username)
	fmt.Fprintf(a.out, "email:    %s\n", u.Email)
	if u.FullName != "" {
		fmt.Fprintf(a.out, "name:     %s\n", u.FullName)
	}
	if u.Avatar != "" {
		fmt.Fprintf(a.out, "avatar:   %s\n", u.Avatar)
	}
	if u.CoverImage != "" {
		fmt.Fprintf(a.out, "cover:    %s\n", u.CoverImage)
	}
}
