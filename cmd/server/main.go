package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sasha-s/go-deadlock"

	"github.com/palemoky/ntetris-server/internal/config"
	"github.com/palemoky/ntetris-server/internal/logger"
	"github.com/palemoky/ntetris-server/internal/server"
	"github.com/palemoky/ntetris-server/internal/server/admin"
	"github.com/palemoky/ntetris-server/internal/server/events"
	"github.com/palemoky/ntetris-server/internal/server/storage"
)

var _ admin.Operations = (*server.Server)(nil)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	port := flag.Int("port", 0, "UDP 端口（覆盖配置文件）")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	if err := logger.Init(cfg.Log.File); err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Close()

	deadlock.Opts.Disable = !cfg.Debug.LockDetection
	if cfg.Debug.LockDetection {
		deadlock.Opts.DeadlockTimeout = 10 * time.Second
		log.Println("🔍 已开启死锁检测")
	}

	var opts []server.Option

	// 在线状态镜像
	if cfg.Redis.Enabled {
		mirror, err := newMirror(cfg)
		if err != nil {
			logger.LogFatal("初始化 Redis 镜像失败: %v", err)
		}
		opts = append(opts, server.WithMirror(mirror), server.WithCloser(mirror))
	}

	// 生命周期事件
	if cfg.NATS.URL != "" {
		pub, err := events.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, "ntetris-server")
		if err != nil {
			logger.LogFatal("连接 NATS 失败: %v", err)
		}
		log.Printf("📡 生命周期事件发布到 %s (%s.*)", cfg.NATS.URL, cfg.NATS.SubjectPrefix)
		opts = append(opts, server.WithEvents(pub), server.WithCloser(pub))
	}

	srv := server.NewServer(cfg, opts...)
	if err := srv.Listen(); err != nil {
		logger.LogFatal("绑定端口失败: %v", err)
	}

	console := admin.NewConsole(srv)

	// websocket 管理台
	var adminHTTP *http.Server
	if cfg.Admin.Addr != "" {
		adminHTTP = admin.NewHTTPServer(cfg.Admin.Addr,
			admin.NewHandler(console, cfg.Admin.Token, cfg.Admin.AllowedOrigins))
		go func() {
			log.Printf("🛠️ 管理台监听 ws://%s/admin", cfg.Admin.Addr)
			if err := adminHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("⚠️ 管理台退出: %v", err)
			}
		}()
	}

	// stdin 管理台
	if cfg.Admin.Stdin {
		go console.ServeReader(os.Stdin, os.Stdout)
	}

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-quit:
			log.Printf("收到信号 %v，正在关闭服务器...", sig)
			srv.Shutdown("")
		case <-srv.Done():
		}
	}()

	log.Println("🎮 ntetris 服务器启动中...")
	if err := srv.Start(); err != nil && !errors.Is(err, server.ErrServerClosed) {
		logger.LogFatal("服务器启动失败: %v", err)
	}

	if adminHTTP != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = adminHTTP.Shutdown(ctx)
	}
	log.Println("👋 再见")
}

// newMirror 连接 Redis，清空上次运行残留的快照，并包一层异步队列
func newMirror(cfg *config.Config) (*storage.AsyncMirror, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	store := storage.NewRedisStore(rdb, "", cfg.Redis.TTLDuration())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	n, err := store.Clear(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	log.Printf("🗄️ Redis 镜像已连接 %s，清理旧键 %d 个", cfg.Redis.Addr, n)

	return storage.NewAsyncMirror(store, cfg.Server.QueueSize), nil
}
