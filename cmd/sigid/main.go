// Точка входа SIGID — системы управления афилиатами.
// Команды: serve (по умолчанию) — HTTP API; init-db — миграции и начальные
// данные; check-connection — проверка связи с PostgreSQL и Keycloak.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bigkaa/sigid/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "sigid",
	Short:         "SIGID — gestión de afiliados por promotores y supervisores",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запуск HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runServe(cmd.Context())
	},
}

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Миграции, начальные секции и пользователи",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runInitDB(cmd.Context())
	},
}

var checkConnectionCmd = &cobra.Command{
	Use:   "check-connection",
	Short: "Проверка связи с PostgreSQL и Keycloak",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runCheckConnection(cmd.Context(), cmd.OutOrStdout())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Версия сборки",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, initDBCmd, checkConnectionCmd, versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("Ошибка выполнения команды", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
