// Command gatewaysim runs a standalone in-memory gateway double for manual
// testing of the scanner console. It seeds one operator account and one open
// incoming task and serves the same REST surface the real gateway exposes.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"packtrack/internal/client/models"
	"packtrack/internal/gatewaysim"
)

func main() {

	addr := flag.String("a", "localhost:8080", "listen address")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	sim := gatewaysim.New()
	sim.AddUser("operator", "operator", "Demo Operator", "staff")
	sim.SeedTask(models.Task{
		ID:        "demo-task",
		TaskID:    "T-1001",
		Type:      models.TaskTypeIncoming,
		IsOpen:    true,
		Courier:   "demo-courier",
		Channel:   "demo-channel",
		VehicleNo: "KA01AB1234",
		CreatedBy: models.UserRef{Name: "Demo Operator", Username: "operator"},
		CreatedAt: time.Now(),
	})

	log.Info("gateway simulator listening", "addr", *addr, "user", "operator", "task", "demo-task")

	if err := http.ListenAndServe(*addr, sim.Router()); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}

}
