package main

import (
	"flag"
	"log"

	"arena/internal/client"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := client.LoadConfig()

	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "服务器地址")
	flag.StringVar(&cfg.Proto, "proto", cfg.Proto, "传输协议 (tcp|kcp)")
	flag.StringVar(&cfg.Name, "name", cfg.Name, "玩家名称")
	flag.Float64Var(&cfg.Scale, "scale", cfg.Scale, "每像素对应的世界单位")
	token := flag.String("token", "", "会话令牌，用于断线重连")
	arrows := flag.Bool("arrows", false, "使用方向键方案")
	flag.Parse()

	scheme := client.ControlWASD
	if *arrows {
		scheme = client.ControlArrow
	}

	network := client.NewNetworkClient(cfg.Addr, cfg.Proto, cfg.Name)
	if err := network.Connect(*token); err != nil {
		log.Fatalf("连接失败: %v", err)
	}

	game := client.NewGame(cfg, network, scheme)

	ebiten.SetWindowSize(client.ScreenWidth, client.ScreenHeight)
	ebiten.SetWindowTitle("Arena - " + cfg.Name + " [" + scheme.String() + "]")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeDisabled)
	ebiten.SetTPS(cfg.TPS)

	err := ebiten.RunGame(game)
	game.Close()
	if err != nil {
		log.Fatal(err)
	}
	if t := game.Token(); t != "" {
		log.Printf("会话令牌: %s", t)
	}
}
