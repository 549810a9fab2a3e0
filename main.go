package main

import (
	"github.com/ColonelBlimp/dtmf/cmd"
	"github.com/ColonelBlimp/dtmf/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
