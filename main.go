package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"rent-billing/cmd"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: .env not loaded: %v\n", err)
	}
	cmd.Execute()
}
