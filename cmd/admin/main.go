package main

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
)

const usage = `Usage: admin <command> [args]

Commands:
  create-user <username> [admin]   create an account (CLIENT unless "admin")
  promote <username>               grant the ADMIN role
  demote <username>                revoke the ADMIN role
  delete-user <username>           remove an account and its complaints
  add-category <title> [description]
  delete-category <id>
  token <username>                 issue an API bearer token
  history <complaint_id>           print the audit trail of a complaint`

var errUsage = errors.New("invalid arguments")

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Error loading .env file")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if cfg.StorageDriver != config.DriverPostgres {
		log.Fatalf("admin CLI needs STORAGE_DRIVER=%s", config.DriverPostgres)
	}

	db, err := storage.OpenPostgres(cfg.PostgresDSN(), cfg.DBLogLevel)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	if err := run(context.Background(), storageSvc, tokens, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, s storage.Storage, tokens *auth.Tokens, args []string, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}
	command, args := args[0], args[1:]

	switch command {
	case "create-user":
		if len(args) < 1 || len(args) > 2 || (len(args) == 2 && args[1] != "admin") {
			return errUsage
		}
		user := &models.User{Username: args[0], Role: models.RoleClient}
		if len(args) == 2 {
			user.Role = models.RoleAdmin
		}
		if err := s.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("create user %s: %w", args[0], err)
		}
		fmt.Fprintf(out, "User %s created with id %s (%s).\n", user.Username, user.ID, user.Role)

	case "promote", "demote":
		if len(args) != 1 {
			return errUsage
		}
		role := models.RoleAdmin
		if command == "demote" {
			role = models.RoleClient
		}
		user, err := findUser(ctx, s, args[0])
		if err != nil {
			return err
		}
		if err := s.UpdateUserRole(ctx, user.ID, role); err != nil {
			return fmt.Errorf("update role of %s: %w", user.Username, err)
		}
		fmt.Fprintf(out, "User %s is now %s.\n", user.Username, role)

	case "delete-user":
		if len(args) != 1 {
			return errUsage
		}
		user, err := findUser(ctx, s, args[0])
		if err != nil {
			return err
		}
		if err := s.DeleteUser(ctx, user.ID); err != nil {
			return fmt.Errorf("delete user %s: %w", user.Username, err)
		}
		fmt.Fprintf(out, "User %s has been deleted.\n", user.Username)

	case "add-category":
		if len(args) < 1 || len(args) > 2 {
			return errUsage
		}
		title := strings.TrimSpace(args[0])
		if title == "" || len(title) > config.MaxCategoryTitleLength {
			return fmt.Errorf("category title must be 1-%d characters", config.MaxCategoryTitleLength)
		}
		category := &models.Category{Title: title}
		if len(args) == 2 {
			category.Description = args[1]
		}
		if err := s.SaveCategory(ctx, category); err != nil {
			return fmt.Errorf("save category: %w", err)
		}
		fmt.Fprintf(out, "Category %q created with id %d.\n", category.Title, category.ID)

	case "delete-category":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		if err := s.DeleteCategory(ctx, id); err != nil {
			return fmt.Errorf("delete category %d: %w", id, err)
		}
		fmt.Fprintf(out, "Category %d has been deleted.\n", id)

	case "token":
		if len(args) != 1 {
			return errUsage
		}
		user, err := findUser(ctx, s, args[0])
		if err != nil {
			return err
		}
		token, err := tokens.Generate(user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, token)

	case "history":
		id, err := parseID(args)
		if err != nil {
			return err
		}
		return printHistory(ctx, s, id, out)

	default:
		return errUsage
	}
	return nil
}

func findUser(ctx context.Context, s storage.Storage, username string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	return user, nil
}

func parseID(args []string) (uint, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q: %w", args[0], errUsage)
	}
	return uint(id), nil
}

// printHistory reads through the complaint service as a synthetic admin so
// the CLI sees the same ordering and not-found semantics as the API.
func printHistory(ctx context.Context, s storage.Storage, complaintID uint, out io.Writer) error {
	cli := &models.User{ID: "cli", Username: "cli", Role: models.RoleAdmin}
	history, err := complaint.NewService(s).ListHistory(ctx, cli, complaintID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tACTION\tOLD\tNEW\tUSER\tCOMMENT")
	for _, h := range history {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			h.ID, h.CreatedAt.Format(time.RFC3339), h.Action,
			statusOrDash(h.OldStatus), statusOrDash(h.NewStatus), h.ActorID(), h.Comment)
	}
	return w.Flush()
}

func statusOrDash(s *models.Status) string {
	if s == nil {
		return "-"
	}
	return string(*s)
}
