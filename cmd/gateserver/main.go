// Command gateserver runs an HTTP server whose routes sit behind the
// admission gate. Routes and their throttling rules come from the
// configuration file.
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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reqgate/reqgate/config"
	"github.com/reqgate/reqgate/limiter"
	"github.com/reqgate/reqgate/logger"
	"github.com/reqgate/reqgate/middleware"
	redismgr "github.com/reqgate/reqgate/redis"
)

type serverConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"`
}

func (c *serverConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	if c.Mode == "" {
		c.Mode = gin.ReleaseMode
	}
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   "gateserver",
		Short: "HTTP server with per-route request admission gates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	loader, err := config.NewLoader(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultManagerConfig()
	if loader.Has("logger") {
		if err := loader.Unmarshal("logger", &logCfg); err != nil {
			return fmt.Errorf("logger config: %w", err)
		}
	}
	if err := logCfg.Validate(); err != nil {
		return fmt.Errorf("logger config: %w", err)
	}
	logManager := logger.NewManager(logCfg)
	defer logManager.Close()
	log := logManager.GetLogger("gateserver")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var limiterCfg limiter.Config
	if loader.Has("limiter") {
		if err := loader.Unmarshal("limiter", &limiterCfg); err != nil {
			return fmt.Errorf("limiter config: %w", err)
		}
	} else {
		limiterCfg = limiter.DefaultConfig()
	}

	var redisManager *redismgr.Manager
	var limiterManager *limiter.Manager
	if limiterCfg.StoreType == string(limiter.StoreRedis) {
		var redisCfg redismgr.Config
		if err := loader.Unmarshal("redis", &redisCfg); err != nil {
			return fmt.Errorf("redis config: %w", err)
		}
		redisManager, err = redismgr.NewManager(ctx, redisCfg, logManager.GetLogger("redis"))
		if err != nil {
			return fmt.Errorf("init redis: %w", err)
		}
		defer redisManager.Close()

		client, err := redisManager.Client(limiterCfg.Redis.Instance)
		if err != nil {
			return fmt.Errorf("limiter redis instance: %w", err)
		}
		limiterManager, err = limiter.NewManager(limiterCfg, logManager.GetLogger("limiter"), client)
		if err != nil {
			return fmt.Errorf("init limiter: %w", err)
		}
	} else {
		limiterManager, err = limiter.NewManager(limiterCfg, logManager.GetLogger("limiter"), nil)
		if err != nil {
			return fmt.Errorf("init limiter: %w", err)
		}
	}
	defer limiterManager.Close()

	var srvCfg serverConfig
	if loader.Has("server") {
		if err := loader.Unmarshal("server", &srvCfg); err != nil {
			return fmt.Errorf("server config: %w", err)
		}
	}
	srvCfg.applyDefaults()

	gates := map[string]middleware.GateConfig{}
	if loader.Has("gates") {
		if err := loader.Unmarshal("gates", &gates); err != nil {
			return fmt.Errorf("gates config: %w", err)
		}
	}

	engine, err := buildEngine(srvCfg, limiterManager, logManager, gates)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", srvCfg.Host, srvCfg.Port),
		Handler:      engine,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), srvCfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return err
	}
	log.Info("server stopped")
	return nil
}

func buildEngine(srvCfg serverConfig, limiterManager *limiter.Manager, logManager *logger.Manager, gates map[string]middleware.GateConfig) (*gin.Engine, error) {
	gin.SetMode(srvCfg.Mode)
	engine := gin.New()
	engine.Use(
		middleware.Recovery(logManager.GetLogger("http")),
		middleware.RequestLog(logManager.GetLogger("http")),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	gateLog := logManager.GetLogger("gate")
	for route, gateCfg := range gates {
		gate, err := middleware.Gate(limiterManager, gateLog, gateCfg)
		if err != nil {
			return nil, fmt.Errorf("gate for route %q: %w", route, err)
		}
		engine.GET(route, gate, func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	return engine, nil
}
