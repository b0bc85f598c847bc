package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"contentplanner/internal/app"
	"contentplanner/internal/config"
	"contentplanner/internal/server"
)

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
				sc := rt.Config.Server
				if cmd.Flags().Changed("addr") {
					sc.Addr = addr
				}
				if cmd.Flags().Changed("base-path") {
					sc.BasePath = basePath
				}
				if sc.JWTSecret == "" && !sc.AllowLegacyActorHeader {
					return fmt.Errorf("%s is required for bearer auth", config.EnvJWTSecret)
				}
				handler, err := server.New(server.Config{
					Engine:   rt.Engine,
					BasePath: sc.BasePath,
					Auth: server.AuthConfig{
						JWTSecret:              sc.JWTSecret,
						AllowLegacyActorHeader: sc.AllowLegacyActorHeader,
						DevLogin:               sc.DevLogin,
						Logger:                 rt.Logger,
					},
					Suggester:      rt.Suggester,
					Diagnostics:    rt.Diagnostics,
					Logger:         rt.Logger,
					MaxSuggestions: rt.Config.Suggestions.MaxCount,
				})
				if err != nil {
					return err
				}
				srv := &http.Server{
					Addr:         sc.Addr,
					Handler:      handler,
					ReadTimeout:  sc.ReadTimeout.Std(),
					WriteTimeout: sc.WriteTimeout.Std(),
				}

				dispatcher := server.NewWebhookDispatcher(rt.Engine.Repo, rt.Config.Webhooks, rt.Logger)
				go dispatcher.Run(ctx)

				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout.Std())
					defer cancel()
					if err := srv.Shutdown(shutdownCtx); err != nil {
						rt.Logger.Warn("shutdown", "error", err)
					}
				}()
				rt.Logger.Info("serving", "addr", sc.Addr, "base_path", sc.BasePath, "webhooks", len(rt.Config.Webhooks))
				fmt.Printf("Serving Content Planner API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", sc.Addr, sc.BasePath, sc.BasePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (overrides server.base_path)")
	return cmd
}
