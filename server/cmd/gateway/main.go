package main

import (
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/api/gateway"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/config"
	"github.com/oryce/mai-crypto-5-sem-sub000/server/internal/services/cipher"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	// Load configuration
	cfg := config.Load()
	glog.Infof("Configuration loaded:%s", cfg)

	// Create services
	cipherService := cipher.NewService(cfg)
	glog.Infof("Cipher pool ready with %d workers", cipherService.Pool().Workers())

	// Create gateway server with services
	gatewayServer := gateway.New(
		fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		cipherService,
		cfg.Cipher.MaxBody,
	)

	// Start gateway server
	if err := gatewayServer.Start(); err != nil {
		glog.Fatalf("Gateway server failed: %v", err)
	}
}
