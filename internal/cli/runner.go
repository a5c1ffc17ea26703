// Package cli implements the apiclient command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/superapp/apiclient"
	"github.com/superapp/apiclient/auth/api"
	"github.com/superapp/apiclient/auth/session"
	"github.com/superapp/apiclient/auth/store"
	"github.com/superapp/apiclient/config"
	"github.com/superapp/apiclient/internal/logging"
)

type app struct {
	ctx     context.Context
	options *Options
	stdout  io.Writer
	stderr  io.Writer
}

// Run parses args and executes the selected command.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{ctx: ctx, stdout: stdout, stderr: stderr}
	options := &Options{}
	a.options = options
	options.Login.app = a
	options.Register.app = a
	options.Me.app = a
	options.Logout.app = a
	options.SendOTP.app = a
	options.VerifyOTP.app = a
	options.Status.app = a

	parser := flags.NewParser(options, flags.HelpFlag|flags.PassDoubleDash)
	_, err := parser.ParseArgs(args)
	return err
}

func (a *app) client() (*apiclient.Client, error) {
	cfg, err := config.Load(a.options.Config)
	if err != nil {
		return nil, err
	}
	if a.options.BaseURL != "" {
		cfg.API.BaseURL = a.options.BaseURL
	}
	if a.options.Store != "" {
		cfg.Store.Kind = a.options.Store
	}
	if a.options.StoreURL != "" {
		cfg.Store.URL = a.options.StoreURL
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.New(a.stderr, cfg.Env, cfg.LogLevel)
	return apiclient.New(a.ctx, cfg, apiclient.WithLogger(logger))
}

func (a *app) run(fn func(client *apiclient.Client) error) error {
	client, err := a.client()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (a *app) print(v interface{}) error {
	encoder := json.NewEncoder(a.stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (c *LoginCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		user, err := client.Session.Login(c.app.ctx, c.Identifier, c.Password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.app.stdout, "signed in as %v\n", user.DisplayName())
		return err
	})
}

func (c *RegisterCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		user, err := client.Session.Register(c.app.ctx, api.RegisterRequest{
			Username:  c.Username,
			Email:     c.Email,
			Password:  c.Password,
			Password2: c.Password,
			FirstName: c.FirstName,
			LastName:  c.LastName,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.app.stdout, "registered %v\n", user.DisplayName())
		return err
	})
}

func (c *MeCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		user, err := client.API.Me(c.app.ctx)
		if err != nil {
			return err
		}
		return c.app.print(user)
	})
}

func (c *LogoutCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		client.Session.Logout(c.app.ctx)
		_, err := fmt.Fprintln(c.app.stdout, "signed out")
		return err
	})
}

func (c *SendOTPCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		if err := client.API.SendOTP(c.app.ctx, c.Phone); err != nil {
			return err
		}
		_, err := fmt.Fprintln(c.app.stdout, "code sent")
		return err
	})
}

func (c *VerifyOTPCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		user, err := client.Session.VerifyOTP(c.app.ctx, c.Phone, c.OTP)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.app.stdout, "signed in as %v\n", user.DisplayName())
		return err
	})
}

type status struct {
	Authenticated bool       `json:"authenticated"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired,omitempty"`
}

func (c *StatusCommand) Execute(_ []string) error {
	return c.app.run(func(client *apiclient.Client) error {
		ret := status{Authenticated: store.Authenticated(client.Store.Load(c.app.ctx))}
		claims, err := client.Session.Claims(c.app.ctx)
		switch {
		case err == nil:
			ret.Subject = claims.Subject
			if !claims.ExpiresAt.IsZero() {
				ret.ExpiresAt = &claims.ExpiresAt
				ret.Expired = claims.Expired(time.Now())
			}
		case errors.Is(err, session.ErrNoSession), errors.Is(err, session.ErrNotJWT):
		default:
			return err
		}
		return c.app.print(ret)
	})
}
