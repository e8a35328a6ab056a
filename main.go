package main

import (
	// Zone rules are embedded so America/Chicago resolves in images without a zoneinfo database.
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"dumpster-booking/cmd"
)

func main() {
	godotenv.Load()
	cmd.Execute()
}
