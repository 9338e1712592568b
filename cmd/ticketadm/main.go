// ticketadm is the operator tool for the ticket service: it applies migrations, seeds reference
// data, manages identities and issues access tokens.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/benleytuano/ts-api-service/internal/api/dto"
	"github.com/benleytuano/ts-api-service/internal/auth"
	"github.com/benleytuano/ts-api-service/internal/config"
	"github.com/benleytuano/ts-api-service/internal/domain"
	"github.com/benleytuano/ts-api-service/internal/observability"
	"github.com/benleytuano/ts-api-service/internal/persistence"
	"github.com/benleytuano/ts-api-service/internal/repository"
	"github.com/benleytuano/ts-api-service/internal/seed"
)

const usage = `Usage: ticketadm <command> [flags]

Commands:
  migrate                              apply pending schema migrations
  seed [--file path]                   insert missing categories, departments and locations
  user add --name N --email E --role R create an identity
  user delete (--id ID | --email E)    remove an identity and release its assignments
  token (--id ID | --email E)          issue an access token

The store, JWT secret and log level come from the same environment as the API server.
`

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	cmd := command{cfg: cfg, logger: logger, out: out}
	switch args[0] {
	case "migrate":
		return cmd.migrate(ctx, args[1:])
	case "seed":
		return cmd.seed(ctx, args[1:])
	case "user":
		if len(args) < 2 {
			return errors.New("user requires a subcommand: add or delete")
		}
		switch args[1] {
		case "add":
			return cmd.addUser(ctx, args[2:])
		case "delete":
			return cmd.deleteUser(ctx, args[2:])
		default:
			return fmt.Errorf("unknown user subcommand %q", args[1])
		}
	case "token":
		return cmd.token(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

type command struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

func (c command) open(ctx context.Context, migrate bool) (*persistence.Store, error) {
	cfg := *c.cfg
	cfg.Store.RunMigrations = migrate
	return persistence.OpenStore(ctx, &cfg, c.logger)
}

func (c command) migrate(ctx context.Context, args []string) error {
	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	store, err := c.open(ctx, true)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck
	fmt.Fprintf(c.out, "%s store is up to date\n", store.Driver)
	return nil
}

func (c command) seed(ctx context.Context, args []string) error {
	var path string
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVar(&path, "file", "", "seed YAML (default: bundled hospital reference data)")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	file, err := seed.Load(path)
	if err != nil {
		return err
	}
	store, err := c.open(ctx, c.cfg.Store.RunMigrations)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	result, err := seed.Apply(ctx, store.References, file, c.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "created %d categories, %d departments, %d locations\n", result.Categories, result.Departments, result.Locations)
	return nil
}

func (c command) addUser(ctx context.Context, args []string) error {
	var name, email, role string
	flagSet := pflag.NewFlagSet("user add", pflag.ContinueOnError)
	flagSet.StringVar(&name, "name", "", "display name")
	flagSet.StringVar(&email, "email", "", "unique email address")
	flagSet.StringVar(&role, "role", string(domain.RoleRequester), "admin, agent or requester")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return err
	}
	user := &domain.User{Name: strings.TrimSpace(name), Email: strings.ToLower(strings.TrimSpace(email)), Role: parsedRole}
	if user.Name == "" || user.Email == "" {
		return errors.New("--name and --email are required")
	}

	store, err := c.open(ctx, c.cfg.Store.RunMigrations)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if err := store.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("a user with email %s already exists", user.Email)
		}
		return err
	}
	return c.print(dto.NewUserSummary(user))
}

func (c command) deleteUser(ctx context.Context, args []string) error {
	var id, email string
	flagSet := pflag.NewFlagSet("user delete", pflag.ContinueOnError)
	flagSet.StringVar(&id, "id", "", "user id")
	flagSet.StringVar(&email, "email", "", "user email")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	store, err := c.open(ctx, c.cfg.Store.RunMigrations)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	user, err := lookupUser(ctx, store.Users, id, email)
	if err != nil {
		return err
	}
	if err := store.Users.Delete(ctx, user.ID); err != nil {
		if errors.Is(err, repository.ErrStillReferenced) {
			return fmt.Errorf("user %s still raised tickets or authored updates", user.Email)
		}
		return err
	}
	fmt.Fprintf(c.out, "deleted %s\n", user.Email)
	return nil
}

func (c command) token(ctx context.Context, args []string) error {
	var id, email string
	flagSet := pflag.NewFlagSet("token", pflag.ContinueOnError)
	flagSet.StringVar(&id, "id", "", "user id")
	flagSet.StringVar(&email, "email", "", "user email")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	store, err := c.open(ctx, c.cfg.Store.RunMigrations)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	user, err := lookupUser(ctx, store.Users, id, email)
	if err != nil {
		return err
	}
	tokens := auth.NewTokenManager(c.cfg.Auth.JWTSecret, c.cfg.Auth.AccessTokenTTLMinutes)
	token, expiresAt, err := tokens.GenerateToken(user)
	if err != nil {
		return err
	}
	return c.print(dto.TokenResponse{UserID: user.ID, Token: token, ExpiresAt: expiresAt})
}

func (c command) print(value any) error {
	encoder := json.NewEncoder(c.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func lookupUser(ctx context.Context, users repository.UserRepository, id, email string) (*domain.User, error) {
	var (
		user *domain.User
		err  error
	)
	switch {
	case id != "":
		if !repository.IsID(id) {
			return nil, fmt.Errorf("%q is not a user id", id)
		}
		user, err = users.GetByID(ctx, id)
	case email != "":
		user, err = users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	default:
		return nil, errors.New("--id or --email is required")
	}
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errors.New("user not found")
	}
	return user, err
}
