package main

import (
	"github.com/ColonelBlimp/drumkeys/cmd"
	"github.com/ColonelBlimp/drumkeys/internal/recovery"
)

func main() {
	defer recovery.HandlePanic()
	cmd.Execute()
}
