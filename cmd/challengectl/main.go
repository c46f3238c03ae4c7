package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/dmitrijs2005/thechallenge/internal/admin"
	"github.com/dmitrijs2005/thechallenge/internal/buildinfo"
	"github.com/dmitrijs2005/thechallenge/internal/server/config"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/thechallenge/internal/server/services"
	"github.com/dmitrijs2005/thechallenge/internal/timex"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {

	if len(os.Args) > 1 && os.Args[1] == "version" {
		buildinfo.PrintBuildData(os.Stdout)
		return
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	us := services.NewUserService(db, rm, timex.SystemClock{}, cfg)
	tool := admin.NewTool(us, os.Stdin, os.Stdout)

	if err := tool.Run(ctx, os.Args[1:]); err != nil {
		db.Close()
		log.Fatalf("%v", err)
	}

}
