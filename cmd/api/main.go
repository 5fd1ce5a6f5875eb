package main

import (
	"context"
	"log"

	"github.com/sngm3741/hushmap-services/api/internal/config"
	"github.com/sngm3741/hushmap-services/api/internal/infrastructure/mqtt"
	"github.com/sngm3741/hushmap-services/api/internal/server"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	backend, err := server.OpenBackend(ctx, cfg, cfg.ServerLog)
	if err != nil {
		cfg.ServerLog.Fatalf("ストア接続に失敗しました: %v", err)
	}

	var publisher *mqtt.Publisher
	if cfg.MQTTBroker != "" {
		publisher = mqtt.NewPublisher(mqtt.Config{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			TopicPrefix: cfg.MQTTTopicPrefix,
			Logger:      cfg.ServerLog,
		})
		if err := publisher.Connect(ctx); err != nil {
			// 自動再接続に任せ、起動は継続する。
			cfg.ServerLog.Printf("MQTT ブローカー接続に失敗しました: %v", err)
		}
	}

	app := server.New(cfg, backend, publisher)
	if err := app.Run(); err != nil {
		log.Fatalf("サーバー起動に失敗: %v", err)
	}
}
