package main

import (
	"log"

	"blucoach/bot"
	"blucoach/core/cmd"
)

func main() {
	err := cmd.Run(cmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
			return bot.LoadConfig(path)
		},
		Bootstrap: func(cfg cmd.ConfigCarrier) (cmd.TelegramApp, error) {
			return bot.NewApp(cfg.(*bot.Config))
		},
	})
	if err != nil {
		log.Fatalf("blucoach: %v", err)
	}
}
