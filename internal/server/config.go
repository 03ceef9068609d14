package server

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"arena/pkg/core"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "arena-dev-secret-change-in-production"

// Config 服务器配置，从环境变量（可选 .env 文件）读取
type Config struct {
	Addr       string
	Proto      string
	MapName    string
	FrameRate  int
	MaxClients int
	Gravity    float32

	JWTSecret  string
	SessionTTL time.Duration

	// 每个连接的入站消息速率限制
	PacketRate  float64
	PacketBurst int

	Debug bool // 输出物理调试信息
}

// LoadConfig 读取配置并修正越界的帧率与客户端数
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] 读取 .env 失败: %v", err)
	}

	cfg := Config{
		Addr:        getEnv("ARENA_ADDR", ":27910"),
		Proto:       getEnv("ARENA_PROTO", "kcp"),
		MapName:     getEnv("ARENA_MAP", "arena"),
		FrameRate:   parseInt(getEnv("ARENA_FRAMERATE", ""), core.DefaultFrameRate),
		MaxClients:  parseInt(getEnv("ARENA_MAX_CLIENTS", ""), 8),
		Gravity:     float32(parseFloat(getEnv("ARENA_GRAVITY", ""), 800)),
		JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
		SessionTTL:  parseDuration(getEnv("ARENA_SESSION_TTL", "5m"), 5*time.Minute),
		PacketRate:  parseFloat(getEnv("ARENA_PACKET_RATE", ""), 250),
		PacketBurst: parseInt(getEnv("ARENA_PACKET_BURST", ""), 64),
		Debug:       parseBool(getEnv("ARENA_DEBUG", "")),
	}
	if cfg.JWTSecret == defaultJWTSecret {
		log.Println("[WARN] 使用默认 JWT 密钥，生产环境请设置 JWT_SECRET")
	}
	cfg.Clamp()
	return cfg
}

// Clamp 将帧率与客户端数限制在合法范围内
func (c *Config) Clamp() {
	if c.FrameRate < core.FrameRateMin || c.FrameRate > core.FrameRateMax {
		fixed := clampInt(c.FrameRate, core.FrameRateMin, core.FrameRateMax)
		log.Printf("[WARN] 帧率 %d 越界，修正为 %d", c.FrameRate, fixed)
		c.FrameRate = fixed
	}
	if c.MaxClients < core.MinClients || c.MaxClients > core.MaxClients {
		fixed := clampInt(c.MaxClients, core.MinClients, core.MaxClients)
		log.Printf("[WARN] 最大客户端数 %d 越界，修正为 %d", c.MaxClients, fixed)
		c.MaxClients = fixed
	}
}

// FrameMillis 每帧毫秒数
func (c *Config) FrameMillis() uint32 {
	return uint32(1000 / c.FrameRate)
}

// FrameDuration 每帧时长
func (c *Config) FrameDuration() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(s)
	return v
}
