package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"task_manager/internal/db"
	"task_manager/internal/logger"
)

func main() {
	apply := flag.Bool("apply", false, "apply migrations instead of listing them")
	flag.Parse()

	names, err := db.Migrations()
	if err != nil {
		logger.Fatal("list migrations", "error", err)
	}
	if !*apply {
		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	pool := db.Connect(dsn)
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", "error", err)
	}
	fmt.Printf("applied %d migrations\n", len(names))
}
