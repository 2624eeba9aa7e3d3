package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/customeros/mailsync/config"
	"github.com/customeros/mailsync/internal/database"
	"github.com/customeros/mailsync/internal/repository"
	"github.com/customeros/mailsync/server"
)

func main() {
	app := &cli.App{
		Name:  "mailsync",
		Usage: "multi-account IMAP sync with AI categorization",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrate,
			},
			{
				Name:   "accounts",
				Usage:  "List the IMAP accounts found in the environment",
				Action: listAccounts,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.InitConfig()
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("Config initialization failed: %v", err), 1)
	}
	return cfg, nil
}

func runServer(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Database initialization failed: %v", err), 1)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("mailsync starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Server setup failed: %v", err), 1)
	}

	if err = srv.Run(); err != nil {
		return cli.Exit(fmt.Sprintf("Server startup failed: %v", err), 1)
	}

	log.Println("Shutdown complete")
	return nil
}

func runMigrate(_ *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.InitDatabase(cfg.DatabaseConfig)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Database initialization failed: %v", err), 1)
	}

	if err = repository.MigrateDB(cfg.DatabaseConfig, db); err != nil {
		return cli.Exit(fmt.Sprintf("Database migration failed: %v", err), 1)
	}
	log.Println("Database migration completed successfully")
	return nil
}

func listAccounts(c *cli.Context) error {
	accounts, err := config.LoadAccounts(config.EnvironMap())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if len(accounts) == 0 {
		fmt.Fprintln(c.App.Writer, "No accounts configured")
		return nil
	}
	for _, account := range accounts {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\ttls=%t\n", account.ID, account.Username, account.Address(), account.UseTLS)
	}
	return nil
}
