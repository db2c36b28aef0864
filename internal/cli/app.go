// Package cli is an interactive terminal front end over the user service.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
	"github.com/AiCodeFutures/usermanage/internal/bmi"
	"github.com/AiCodeFutures/usermanage/internal/user"
	"github.com/AiCodeFutures/usermanage/internal/user/entity"
)

// Service is the command surface the REPL needs. *user.UserService satisfies it.
type Service interface {
	Register(ctx context.Context, in user.RegisterInput) (*entity.User, error)
	Get(ctx context.Context, id int64) (*entity.User, error)
	List(ctx context.Context, skip, limit int) ([]entity.User, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, query string) ([]entity.User, error)
	Update(ctx context.Context, id int64, in user.UpdateInput) (*entity.User, error)
	Delete(ctx context.Context, id int64) error
	Login(ctx context.Context, email, password string) (*entity.User, error)
}

type App struct {
	svc    Service
	in     *bufio.Reader
	out    io.Writer
	fd     int
	logger *zap.SugaredLogger
	// email of the logged in user, shown in the prompt
	current string
}

// NewApp builds a REPL reading from in. fd is the terminal used for hidden
// password input; pass -1 to read passwords as plain lines.
func NewApp(svc Service, in io.Reader, out io.Writer, fd int, logger *zap.SugaredLogger) *App {
	return &App{svc: svc, in: bufio.NewReader(in), out: out, fd: fd, logger: logger}
}

const helpText = `Available commands:
  list [skip] [limit]   list users (limit 0 = all)
  count                 number of users
  search <text>         find by username, email or remark
  show <id>             show one user
  add                   create a user
  update <id>           edit a user (blank keeps, "-" clears optional fields)
  delete <id>           remove a user
  login                 check credentials
  help                  this text
  exit | quit           leave`

// Run reads commands until EOF, exit or ctx is done.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "usermanage (type 'help' for commands)")
	for ctx.Err() == nil {
		prompt := "users> "
		if a.current != "" {
			prompt = "users [" + a.current + "]> "
		}
		fmt.Fprint(a.out, prompt)
		line, err := a.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			fmt.Fprintln(a.out)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help", "?":
			fmt.Fprintln(a.out, helpText)
		case "list", "l":
			err = a.list(ctx, args)
		case "count":
			err = a.count(ctx)
		case "search":
			err = a.search(ctx, strings.Join(args, " "))
		case "show":
			err = withID(args, func(id int64) error { return a.show(ctx, id) })
		case "add":
			err = a.add(ctx)
		case "update":
			err = withID(args, func(id int64) error { return a.update(ctx, id) })
		case "delete", "rm":
			err = withID(args, func(id int64) error { return a.delete(ctx, id) })
		case "login":
			err = a.login(ctx)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", cmd)
		}
		if err != nil {
			a.report(err)
		}
	}
}

func (a *App) report(err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	var ue usageError
	switch {
	case errors.As(err, &ue):
		fmt.Fprintln(a.out, "error:", ue.Error())
		return
	case errors.Is(err, apperr.ErrValidation):
		// validation details are safe to show
		fmt.Fprintln(a.out, "error:", err.Error())
		return
	}
	if apperr.Status(err) >= 500 {
		a.logger.Warnw("command failed", "err", err)
	}
	fmt.Fprintln(a.out, "error:", apperr.Message(err))
}

type usageError string

func (u usageError) Error() string { return string(u) }

func withID(args []string, fn func(int64) error) error {
	if len(args) == 0 {
		return usageError("an id is required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return usageError("id must be a positive integer")
	}
	return fn(id)
}

func (a *App) list(ctx context.Context, args []string) error {
	nums := []int{0, 0}
	for i := 0; i < len(args) && i < 2; i++ {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return usageError("usage: list [skip] [limit]")
		}
		nums[i] = n
	}
	users, err := a.svc.List(ctx, nums[0], nums[1])
	if err != nil {
		return err
	}
	a.table(users)
	return nil
}

func (a *App) count(ctx context.Context) error {
	n, err := a.svc.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d user(s)\n", n)
	return nil
}

func (a *App) search(ctx context.Context, q string) error {
	users, err := a.svc.Search(ctx, q)
	if err != nil {
		return err
	}
	a.table(users)
	return nil
}

func (a *App) table(users []entity.User) {
	if len(users) == 0 {
		fmt.Fprintln(a.out, "no users")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tADMIN\tREMARK")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", u.ID, u.Username, u.Email, u.IsAdmin, orDash(u.Remark))
	}
	_ = tw.Flush()
}

func (a *App) show(ctx context.Context, id int64) error {
	u, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	a.detail(u)
	return nil
}

func (a *App) detail(u *entity.User) {
	fmt.Fprintf(a.out, "id:       %d\n", u.ID)
	fmt.Fprintf(a.out, "username: %s\n", u.Username)
	fmt.Fprintf(a.out, "email:    %s\n", u.Email)
	fmt.Fprintf(a.out, "admin:    %t\n", u.IsAdmin)
	fmt.Fprintf(a.out, "remark:   %s\n", orDash(u.Remark))
	fmt.Fprintf(a.out, "height:   %s\n", orDash(u.Height))
	fmt.Fprintf(a.out, "weight:   %s\n", orDash(u.Weight))
	fmt.Fprintf(a.out, "age:      %s\n", orDash(u.Age))
	fmt.Fprintf(a.out, "created:  %s\n", u.CreatedAt.Format("2006-01-02 15:04:05"))
	if p := bmi.FromUser(u); p != nil {
		fmt.Fprintf(a.out, "bmi:      %.2f (%s) %s\n", p.BMI, p.Category, p.Suggestion)
	}
}

func (a *App) add(ctx context.Context) error {
	var in user.RegisterInput
	var err error
	if in.Username, err = ask(a.in, a.out, "Username"); err != nil {
		return err
	}
	if in.Email, err = ask(a.in, a.out, "Email"); err != nil {
		return err
	}
	if in.Password, err = askSecret(a.in, a.out, "Password", a.fd); err != nil {
		return err
	}
	remark, err := ask(a.in, a.out, "Remark (optional)")
	if err != nil {
		return err
	}
	if remark != "" {
		in.Remark = &remark
	}
	if in.Height, in.Weight, in.Age, err = a.askMeasurements(); err != nil {
		return err
	}
	admin, err := ask(a.in, a.out, "Administrator? [y/N]")
	if err != nil {
		return err
	}
	in.IsAdmin = yes(admin)

	u, err := a.svc.Register(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created user %d\n", u.ID)
	return nil
}

// askMeasurements reads the optional height, weight and age of a new user.
func (a *App) askMeasurements() (h, w *float64, age *int64, err error) {
	var raw [3]string
	for i, name := range []string{"Height cm (optional)", "Weight kg (optional)", "Age (optional)"} {
		if raw[i], err = ask(a.in, a.out, name); err != nil {
			return
		}
	}
	if h, err = parseOptFloat(raw[0], "height"); err == nil {
		if w, err = parseOptFloat(raw[1], "weight"); err == nil {
			age, err = parseOptInt(raw[2], "age")
		}
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	return
}

func (a *App) update(ctx context.Context, id int64) error {
	cur, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	p := entity.NewPatch()
	in := user.UpdateInput{Patch: p}

	v, err := ask(a.in, a.out, fmt.Sprintf("Username [%s]", cur.Username))
	if err != nil {
		return err
	}
	if v != "" {
		p.SetUsername(v)
	}
	if v, err = ask(a.in, a.out, fmt.Sprintf("Email [%s]", cur.Email)); err != nil {
		return err
	}
	if v != "" {
		p.SetEmail(v)
	}
	if v, err = askSecret(a.in, a.out, "New password [unchanged]", a.fd); err != nil {
		return err
	}
	if v != "" {
		in.Password = &v
	}
	if v, err = ask(a.in, a.out, fmt.Sprintf("Remark [%s]", orDash(cur.Remark))); err != nil {
		return err
	}
	switch v {
	case "":
	case clearMarker:
		p.SetRemark(nil)
	default:
		p.SetRemark(&v)
	}

	raw := make([]string, 3)
	for i, f := range []struct{ name, cur string }{
		{"Height cm", orDash(cur.Height)}, {"Weight kg", orDash(cur.Weight)}, {"Age", orDash(cur.Age)},
	} {
		if raw[i], err = ask(a.in, a.out, fmt.Sprintf("%s [%s]", f.name, f.cur)); err != nil {
			return err
		}
	}
	if err := applyMeasurement(raw[0], "height", p.SetHeight); err != nil {
		return err
	}
	if err := applyMeasurement(raw[1], "weight", p.SetWeight); err != nil {
		return err
	}
	switch raw[2] {
	case "":
	case clearMarker:
		p.SetAge(nil)
	default:
		age, err := parseOptInt(raw[2], "age")
		if err != nil {
			return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
		}
		p.SetAge(age)
	}

	if v, err = ask(a.in, a.out, fmt.Sprintf("Administrator? [%s] (y/n)", yesNo(cur.IsAdmin))); err != nil {
		return err
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		p.SetIsAdmin(true)
	case "n", "no":
		p.SetIsAdmin(false)
	}

	if p.Len() == 0 && in.Password == nil {
		fmt.Fprintln(a.out, "nothing changed")
		return nil
	}
	u, err := a.svc.Update(ctx, id, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "updated user %d\n", u.ID)
	return nil
}

func applyMeasurement(raw, name string, set func(*float64) *entity.Patch) error {
	switch raw {
	case "":
		return nil
	case clearMarker:
		set(nil)
		return nil
	}
	v, err := parseOptFloat(raw, name)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	set(v)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}

func (a *App) delete(ctx context.Context, id int64) error {
	u, err := a.svc.Get(ctx, id)
	if err != nil {
		return err
	}
	ok, err := ask(a.in, a.out, fmt.Sprintf("Delete %s <%s>? [y/N]", u.Username, u.Email))
	if err != nil {
		return err
	}
	if !yes(ok) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err := a.svc.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted user %d\n", id)
	return nil
}

func (a *App) login(ctx context.Context) error {
	email, err := ask(a.in, a.out, "Email")
	if err != nil {
		return err
	}
	pw, err := askSecret(a.in, a.out, "Password", a.fd)
	if err != nil {
		return err
	}
	u, err := a.svc.Login(ctx, email, pw)
	if err != nil {
		return err
	}
	a.current = u.Email
	fmt.Fprintf(a.out, "Welcome, %s!\n", u.Username)
	if p := bmi.FromUser(u); p != nil {
		fmt.Fprintf(a.out, "BMI %.2f (%s): %s\n", p.BMI, p.Category, p.Suggestion)
	}
	return nil
}
