package main

import (
	"flag"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"rappel-client/internal/api"
	"rappel-client/internal/chat"
	"rappel-client/internal/config"
	"rappel-client/internal/notify"
	"rappel-client/internal/store"
	"rappel-client/internal/tui"
	"rappel-client/pkg/logger"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "chemin du fichier de configuration")
	flag.Parse()

	// .env is optional; BACKEND_URL and RAPPEL_* variables layer on top.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// The terminal belongs to the TUI; logs go to a file instead.
	if f, err := os.OpenFile("rappel.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		logger.SetOutput(f)
		defer f.Close()
	}

	client := api.NewClient(cfg.API)
	reminders := store.New(client)

	platform := notify.NewDesktopPlatform()
	defer platform.Stop()
	bridge := notify.NewBridge(platform, cfg.Notifications.Enabled)
	bridge.Setup()

	controller := chat.NewController(client, reminders, bridge, chat.Options{
		Assistant: cfg.Chat.Assistant,
		Timezone:  cfg.Chat.Timezone,
	})

	program := tea.NewProgram(
		tui.NewModel(controller, reminders, bridge),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil {
		logger.Fatalf("TUI error: %v", err)
	}
}
