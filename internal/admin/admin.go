// Package admin implements challengectl, the operator tool for managing user
// accounts directly against the database.
//
//	challengectl adduser [-username NAME] [-email ADDRESS]
//	challengectl deluser -email ADDRESS [-yes]
//
// Missing values are prompted for. Passwords are always read from the
// terminal without echo.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/flagx"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
)

var ErrUsage = errors.New("usage: challengectl adduser [-username NAME] [-email ADDRESS] | deluser -email ADDRESS [-yes]")

// UserAdmin is the part of the user service the tool drives.
type UserAdmin interface {
	CreateUser(ctx context.Context, username, email, password, confirm string) (*models.User, error)
	DeleteUser(ctx context.Context, email string) error
}

type Tool struct {
	users  UserAdmin
	reader *bufio.Reader
	out    io.Writer
}

func NewTool(users UserAdmin, in io.Reader, out io.Writer) *Tool {
	return &Tool{users: users, reader: bufio.NewReader(in), out: out}
}

// Run executes the subcommand named by args[0]. Flags that do not belong to
// the subcommand (database settings and the like) are ignored.
func (t *Tool) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}

	switch args[0] {
	case "adduser":
		return t.addUser(ctx, args[1:])
	case "deluser":
		return t.delUser(ctx, args[1:])
	case "help", "-h", "-help":
		fmt.Fprintln(t.out, ErrUsage.Error())
		return nil
	default:
		return fmt.Errorf("unknown command %q: %w", args[0], ErrUsage)
	}
}

func (t *Tool) addUser(ctx context.Context, args []string) error {
	var username, email string

	fs := flag.NewFlagSet("adduser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&username, "username", "", "user name")
	fs.StringVar(&email, "email", "", "e-mail address")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-username", "-email"})); err != nil {
		return err
	}

	var err error
	if username == "" {
		if username, err = GetSimpleText(t.reader, "User name", t.out); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = GetSimpleText(t.reader, "E-mail", t.out); err != nil {
			return err
		}
	}

	pw, err := GetPassword(t.out, "Password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword(t.out, "Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	u, err := t.users.CreateUser(ctx, username, email, string(pw), string(confirm))
	if err != nil {
		return err
	}

	fmt.Fprintf(t.out, "User %s <%s> created with id %d\n", u.UserName, u.Email, u.ID)
	return nil
}

func (t *Tool) delUser(ctx context.Context, args []string) error {
	var email string
	var yes bool

	fs := flag.NewFlagSet("deluser", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&email, "email", "", "e-mail address")
	fs.BoolVar(&yes, "yes", false, "skip confirmation")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-yes"})); err != nil {
		return err
	}
	if email == "" {
		return ErrUsage
	}

	if !yes {
		answer, err := GetSimpleText(t.reader, fmt.Sprintf("Delete %s and all of their challenges? Type yes to confirm", email), t.out)
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "yes") {
			fmt.Fprintln(t.out, "Aborted")
			return nil
		}
	}

	if err := t.users.DeleteUser(ctx, email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("no user with e-mail %s", email)
		}
		return err
	}

	fmt.Fprintf(t.out, "User %s deleted\n", email)
	return nil
}
