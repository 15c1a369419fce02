package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"cropvault-server/internal/config"
	db "cropvault-server/internal/db"
	httpapi "cropvault-server/internal/httpapi"
	"cropvault-server/internal/migrate"
	warehouse "cropvault-server/internal/modules/warehouse"
	warehouseviews "cropvault-server/internal/modules/warehouse/views"
	"cropvault-server/internal/mqtt"
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttReadingTopic", cfg.MQTTReadingTopic,
		"mqttThresholdTopic", cfg.MQTTThresholdTopic,
		"cropsPath", cfg.CropsPath,
		"statsConfigured", cfg.StatsURL != "",
		"statsTimeout", cfg.StatsTimeout,
		"timeZone", cfg.Location.String(),
	)
	dbConn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if err := migrate.Run(ctx, dbConn); err != nil {
		return err
	}

	var ok int
	err = dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
	if err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	slog.Info("database connection successful")

	if err := warehouseviews.LoadTemplates(); err != nil {
		return err
	}

	// The reading handler must be installed before Connect: the broker sends
	// the retained reading right after CONNACK.
	mqttClient := mqtt.NewClient(cfg, slog.Default())
	mux := httpapi.NewMux(dbConn, cfg.StaticDir, mqttClient)
	feature, err := warehouse.RegisterFeature(ctx, mux, cfg, dbConn, mqttClient, slog.Default())
	if err != nil {
		return err
	}

	// Short timeout so startup does not block when the broker is down.
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	err = mqttClient.Connect(connectCtx)
	connectCancel()
	if err != nil {
		slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
	}

	go feature.Service.Start(ctx)

	srv := httpapi.NewServer(cfg, mux)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		feature.Hub.Close()
		mqttClient.Disconnect()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	slog.Info("mqtt disconnecting")
	mqttClient.Disconnect()

	slog.Info("closing live connections", "clients", feature.Hub.Len())
	feature.Hub.Close()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
