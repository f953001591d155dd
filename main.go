package main

import (
	"bufio"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatd/config"
	"chatd/db"
	"chatd/server"
)

const (
	configPath        = "chatd.toml"
	controlSocketPath = "/tmp/chatd.sock"
)

func main() {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.New(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	srvConfig := &server.ServerConfig{
		Port:         cfg.Server.Port,
		MaxClients:   cfg.Limits.MaxClients,
		ReadTimeout:  time.Duration(cfg.Limits.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Limits.WriteTimeout) * time.Second,
		MetricsPort:  cfg.Server.MetricsPort,
	}

	srv := server.New(database, srvConfig)

	// Управляющий unix-сокет для stats/shutdown
	go startControlSocket(srv)

	// Аккуратное завершение по сигналу
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, shutting down...", sig)
		srv.Shutdown()
		os.Remove(controlSocketPath)
		os.Exit(0)
	}()

	log.Fatal(srv.Start())
}

func startControlSocket(srv *server.Server) {
	os.Remove(controlSocketPath)

	listener, err := net.Listen("unix", controlSocketPath)
	if err != nil {
		log.Printf("Failed to create control socket: %v", err)
		return
	}
	defer listener.Close()
	defer os.Remove(controlSocketPath)

	log.Printf("Control socket listening on %s", controlSocketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			continue
		}

		go handleControlCommand(srv, conn)
	}
}

func handleControlCommand(srv *server.Server, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		return
	}

	switch strings.TrimSpace(line) {
	case "stats":
		conn.Write([]byte("OK|" + srv.GetStats() + "\n"))

	case "shutdown":
		conn.Write([]byte("OK|Shutting down\n"))
		conn.Close()

		// Даем время на отправку ответа
		time.Sleep(100 * time.Millisecond)

		log.Printf("Shutdown requested via control socket")
		srv.Shutdown()
		os.Remove(controlSocketPath)
		os.Exit(0)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}
