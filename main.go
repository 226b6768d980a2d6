package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bitbnb/hosting-api/api"
	"bitbnb/hosting-api/config"
	"bitbnb/hosting-api/db"
	"bitbnb/hosting-api/service"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	api.MakeLogger(viper.GetString("app.log_level"))
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ipfs, err := service.NewIPFS(ctx,
		viper.GetString("ipfs.api_url"),
		viper.GetDuration("ipfs.timeout"),
		service.RetryPolicy{
			Attempts: viper.GetUint64("ipfs.init_attempts"),
			Delay:    viper.GetDuration("ipfs.init_delay"),
		},
	)
	if err != nil {
		zap.L().Fatal("Failed to initialize IPFS after all retries", zap.Error(err))
	}

	store, err := db.New(ctx)
	if err != nil {
		zap.L().Fatal("Failed to connect to the database", zap.Error(err))
	}

	uploader := service.NewUploader(ipfs, store,
		viper.GetString("ipfs.gateway_url"),
		viper.GetString("short_link.base_url"),
	)

	a := api.NewRouter(ctx, uploader, store)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", viper.GetInt("host.port")),
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zap.L().Info("Server starting", zap.String("addr", srv.Addr))

		var err error
		if viper.GetBool("host.ssl.enabled") {
			err = srv.ListenAndServeTLS(
				viper.GetString("host.ssl.certificate_path"),
				viper.GetString("host.ssl.certificate_key_path"),
			)
		} else {
			err = srv.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zap.L().Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Error("Failed to shut down server", zap.Error(err))
	}

	if err := store.Close(shutdownCtx); err != nil {
		zap.L().Error("Failed to close database", zap.Error(err))
	}
}
