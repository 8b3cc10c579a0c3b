package main

import (
	"os"

	"github.com/gsainfoteam/chatbot-be/cli"
)

func main() {
	os.Exit(cli.Execute())
}
