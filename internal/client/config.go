package client

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config 客户端配置
type Config struct {
	Addr  string
	Proto string
	Name  string

	// 视图
	Scale float64 // 每像素对应的世界单位
	TPS   int     // 本地更新频率，同时决定 UserCmd 的 Msec
}

// LoadConfig 从 .env 与环境变量加载配置
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[WARN] 读取 .env 失败: %v", err)
	}

	cfg := Config{
		Addr:  getEnv("ARENA_SERVER", "127.0.0.1:27910"),
		Proto: getEnv("ARENA_PROTO", "kcp"),
		Name:  getEnv("ARENA_NAME", "player"),
		Scale: parseFloat(getEnv("ARENA_VIEW_SCALE", "3"), 3),
		TPS:   parseInt(getEnv("ARENA_TPS", "60"), 60),
	}
	if cfg.Scale <= 0 {
		cfg.Scale = 3
	}
	if cfg.TPS < 10 || cfg.TPS > 250 {
		log.Printf("[WARN] ARENA_TPS=%d 超出范围，使用 60", cfg.TPS)
		cfg.TPS = 60
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func parseInt(s string, fallback int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("[WARN] 无效整数 %q，使用 %d", s, fallback)
		return fallback
	}
	return v
}

func parseFloat(s string, fallback float64) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		log.Printf("[WARN] 无效数值 %q，使用 %v", s, fallback)
		return fallback
	}
	return v
}
