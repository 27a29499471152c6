package main

import (
	"log"
	"os"

	"github.com/doloop/core/cmd/api/commands"
)

// @title Doloop API
// @version 1.0
// @description Loops of recurring and one-time tasks with reloop, soft delete and suggestions

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		log.Printf("Command execution failed: %v", err)
		os.Exit(1)
	}
}
