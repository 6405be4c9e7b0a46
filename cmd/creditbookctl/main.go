// Package main запускает утилиту администрирования сервиса учёта долгов.
package main

import (
	"os"

	"github.com/mmeshcher/creditbook/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
