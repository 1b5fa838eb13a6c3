package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "negotiator",
	Short: "LLM-driven multi-party price negotiation",
	Long: `Negotiator orchestrates structured price negotiations between one
LLM-driven buyer and several LLM-driven sellers.

The buyer visits each admitted seller in round-robin order, sellers answer
with free-text messages carrying embedded offers, and a decision engine
scores pending offers after every full round until a deal is accepted or
the round budget runs out. Every run emits an ordered event stream that can
be followed over SSE or WebSocket.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	cobra.OnInitialize(loadDotEnv)
}

// loadDotEnv reads an optional .env file before any command runs. Absence is
// not an error; real environment variables win over file values.
func loadDotEnv() {
	_ = godotenv.Load()
}
