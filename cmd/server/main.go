package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"arena/internal/server"
	"arena/pkg/core"
)

func main() {
	cfg := server.LoadConfig()

	// 命令行参数覆盖环境变量
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "服务器监听地址")
	flag.StringVar(&cfg.Proto, "proto", cfg.Proto, "传输协议 (tcp|kcp)")
	flag.StringVar(&cfg.MapName, "map", cfg.MapName, "地图名称")
	flag.IntVar(&cfg.FrameRate, "framerate", cfg.FrameRate, "服务器帧率")
	flag.IntVar(&cfg.MaxClients, "maxclients", cfg.MaxClients, "最大客户端数")
	flag.Parse()
	cfg.Clamp()

	gameServer := server.NewGameServer(cfg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- gameServer.Start()
	}()

	log.Println("========================================")
	log.Println("  Arena 联机服务器")
	log.Println("========================================")
	log.Printf("监听地址: %s (%s)", cfg.Addr, cfg.Proto)
	log.Printf("地图: %s", cfg.MapName)
	log.Printf("最大玩家数: %d", cfg.MaxClients)
	log.Printf("服务器帧率: %d", cfg.FrameRate)
	log.Printf("协议版本: %d", core.ProtocolVersion)
	log.Println("========================================")
	log.Println("按 Ctrl+C 停止服务器，SIGHUP 通知客户端重连")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("服务器启动失败: %v", err)
		}
	case sig := <-sigChan:
		if err := gameServer.Shutdown(sig == syscall.SIGHUP); err != nil {
			log.Printf("关闭时出错: %v", err)
		}
		<-errCh
	}

	log.Println("服务器已关闭，再见！")
}
