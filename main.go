package main

import (
	"os"

	"github.com/GoWeddingShare/GoWeddingShare/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
