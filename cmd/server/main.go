package main

import (
	"github.com/Chuksremi15/wiseramp-backend/internal/server"
)

// @title WiseRamp Settlement API
// @version 1.0
// @description Crypto-fiat exchange settlement core: order intake, chain watching, deposit matching and sweep management.

// @BasePath /api/v1
func main() {
	server.Init()
}
