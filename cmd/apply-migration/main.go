package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"curfew-report/internal/config"
	"curfew-report/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <migration_file.sql>", os.Args[0])
	}

	migrationFile := os.Args[1]
	sqlContent, err := os.ReadFile(migrationFile)
	if err != nil {
		log.Fatalf("Failed to read migration file: %v", err)
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	statements := strings.Split(string(sqlContent), ";")
	executed := 0
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" || strings.HasPrefix(stmt, "--") {
			continue
		}

		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, stmt)
		}
		executed++
	}

	fmt.Printf("Migration completed: %d statements executed\n", executed)
}
