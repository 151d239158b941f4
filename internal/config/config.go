package config

import (
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
	Redis    RedisConfig    `yaml:"redis"`
	NATS     NATSConfig     `yaml:"nats"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Debug    DebugConfig    `yaml:"debug"`
}

// ServerConfig UDP 服务器配置
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Workers    int    `yaml:"workers"`     // 工作协程数
	QueueSize  int    `yaml:"queue_size"`  // 待处理数据报队列长度
	ReadBuffer int    `yaml:"read_buffer"` // 单个数据报最大字节数
}

// GameConfig 大厅与房间配置
type GameConfig struct {
	PingBudget     int    `yaml:"ping_budget"`      // 心跳预算（秒）
	SweepInterval  int    `yaml:"sweep_interval"`   // 心跳巡检间隔（秒）
	MaxRoomPlayers int    `yaml:"max_room_players"` // 房间人数上限
	ShutdownReason string `yaml:"shutdown_reason"`  // 默认停机踢出原因
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	ChatLimit ChatLimitConfig `yaml:"chat_limit"`
	Blacklist []string        `yaml:"blacklist"`
	Whitelist []string        `yaml:"whitelist"`
}

// RateLimitConfig 数据报速率限制（按来源 IP）
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// ChatLimitConfig 聊天速率限制（按玩家）
type ChatLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	Cooldown     int `yaml:"cooldown"` // 秒
}

// RedisConfig 在线状态镜像配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      int    `yaml:"ttl"` // 秒
}

// NATSConfig 生命周期事件配置，URL 为空时不发布
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// AdminConfig 管理控制台配置
type AdminConfig struct {
	Addr           string   `yaml:"addr"` // 为空时关闭 websocket 控制台
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	Stdin          bool     `yaml:"stdin"`
}

// LogConfig 日志配置
type LogConfig struct {
	File string `yaml:"file"` // 为空时输出到 stderr
}

// DebugConfig 调试开关
type DebugConfig struct {
	LockDetection bool `yaml:"lock_detection"`
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// CooldownDuration 返回聊天冷却时长
func (c *ChatLimitConfig) CooldownDuration() time.Duration {
	return time.Duration(c.Cooldown) * time.Second
}

// PingBudgetSeconds 返回心跳预算秒数
func (c *GameConfig) PingBudgetSeconds() int {
	return c.PingBudget
}

// SweepIntervalDuration 返回心跳巡检间隔
func (c *GameConfig) SweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// TTLDuration 返回镜像键过期时间
func (c *RedisConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// 以默认值为底，文件中未出现的字段保持默认
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{
		Admin: AdminConfig{
			Addr:  "127.0.0.1:48880",
			Stdin: true,
		},
		NATS: NATSConfig{
			SubjectPrefix: "ntetris",
		},
	}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 为零值字段设置默认值
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 48879
	}
	if c.Server.Workers <= 0 {
		c.Server.Workers = runtime.NumCPU()
	}
	if c.Server.QueueSize <= 0 {
		c.Server.QueueSize = 1024
	}
	if c.Server.ReadBuffer <= 0 {
		c.Server.ReadBuffer = 2048
	}

	if c.Game.PingBudget <= 0 {
		c.Game.PingBudget = 20
	}
	if c.Game.SweepInterval <= 0 {
		c.Game.SweepInterval = 5
	}
	if c.Game.MaxRoomPlayers < 2 {
		c.Game.MaxRoomPlayers = 4
	}
	if c.Game.ShutdownReason == "" {
		c.Game.ShutdownReason = "Server going down"
	}

	if c.Security.RateLimit.MaxPerSecond <= 0 {
		c.Security.RateLimit.MaxPerSecond = 50
	}
	if c.Security.RateLimit.MaxPerMinute <= 0 {
		c.Security.RateLimit.MaxPerMinute = 600
	}
	if c.Security.RateLimit.BanDuration <= 0 {
		c.Security.RateLimit.BanDuration = 30
	}
	if c.Security.ChatLimit.MaxPerSecond <= 0 {
		c.Security.ChatLimit.MaxPerSecond = 2
	}
	if c.Security.ChatLimit.MaxPerMinute <= 0 {
		c.Security.ChatLimit.MaxPerMinute = 30
	}
	if c.Security.ChatLimit.Cooldown <= 0 {
		c.Security.ChatLimit.Cooldown = 5
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = 2 * 60 * 60
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "ntetris"
	}
}
