package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/charleshuang3/teams/internal/config"
	"github.com/charleshuang3/teams/internal/gormw"
	"github.com/charleshuang3/teams/internal/models"
	"github.com/charleshuang3/teams/internal/storage"
	"github.com/charleshuang3/teams/internal/teams"
)

const usage = `Usage: teamsadm [-c config.yaml] <command> [args]

Commands:
  seed-roles           create or update the roles listed in the config
  list-roles           print the roles and their permissions
  delete-user <email>  delete a user and their memberships
`

var (
	configPath = flag.String("c", os.Getenv("CONFIG_PATH"), "Path to configuration file")
)

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if *configPath == "" {
		log.Fatal().Msg("Config path must be provided via CONFIG_PATH env var or -c flag")
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig(*configPath)

	db, err := gormw.Open(&cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	ctx := context.Background()
	roles := teams.NewRoleStore(db)

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "seed-roles":
		seeded, err := roles.SeedRoles(ctx, cfg.Teams.Roles)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed roles")
		}
		printRoles(seeded)

	case "list-roles":
		list, err := roles.ListAll(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list roles")
		}
		printRoles(list)

	case "delete-user":
		if len(args) != 1 {
			flag.Usage()
			os.Exit(2)
		}
		deleteUser(ctx, cfg, db, roles, args[0])

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}
}

func printRoles(list []models.Role) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPERMISSIONS")
	for _, r := range list {
		fmt.Fprintf(w, "%d\t%s\t%s\n", r.ID, r.Name, strings.Join(r.PermissionList(), ", "))
	}
	w.Flush()
}

func deleteUser(ctx context.Context, cfg *config.Config, db *gormw.DB, roles *teams.RoleStore, email string) {
	user, err := storage.GetUserByEmail(db, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatal().Str("email", email).Msg("User not found")
		}
		log.Fatal().Err(err).Msg("Failed to load user")
	}

	service := teams.NewService(&cfg.Teams, db, roles, teams.NewRegistry())
	if err := service.DeleteUser(ctx, user.ID); err != nil {
		log.Fatal().Err(err).Str("email", user.Email).Msg("Failed to delete user")
	}
	fmt.Printf("deleted user %d (%s)\n", user.ID, user.Email)
}
