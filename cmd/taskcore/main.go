package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/existflow/taskcore/internal/cli"
)

func main() {
	// .env is optional; TASKCORE_* variables may also come from the shell
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
