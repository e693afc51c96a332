// Package daemon exposes the pductl command tree over HTTP so power
// sequences can be driven remotely, e.g. from a rack-management host
// or a container.
package daemon

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func RunServer(rootCmd *cobra.Command) error {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.StripSlashes,
		middleware.Timeout(60*time.Second),
	)

	// Generate endpoints based on the command tree under `rootCmd`
	createCommandTree(router, "", rootCmd)

	err := http.ListenAndServe(viper.GetString("daemon.endpoint"), router)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Add an endpoint for the given command, and repeat recursively for any subcommands
func createCommandTree(router *chi.Mux, endpoint string, cmd *cobra.Command) {
	endpoint = endpoint + "/" + cmd.Name()
	router.Get(endpoint, createHelpHandler(cmd))
	router.Post(endpoint, createCommandHandler(cmd))
	for _, childCmd := range cmd.Commands() {
		if childCmd.Runnable() || childCmd.HasSubCommands() {
			createCommandTree(router, endpoint, childCmd)
		}
	}
}

// Create an HTTP request handler that displays help for the given command
func createHelpHandler(cmd *cobra.Command) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd.SetOut(w)
		_ = cmd.Help()
	}
}

// Create an HTTP request handler that executes the given command with
// each request body line as a separate argument
func createCommandHandler(cmd *cobra.Command) func(w http.ResponseWriter, r *http.Request) {
	// Unset the parent command so that Execute() does not traverse up
	// the command tree
	parent := cmd.Parent()
	if parent != nil {
		parent.RemoveCommand(cmd)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		cmd.SetOut(w)

		body, err := io.ReadAll(r.Body)
		var args []string
		if err == nil && len(body) > 0 {
			args = strings.Split(strings.TrimRight(string(body), "\n"), "\n")
		}
		cmd.SetArgs(args)

		if err = cmd.Execute(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
