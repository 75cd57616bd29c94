package api

import (
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/switchnode/internal/infrastructure/mqtt"
)

// DBStatter reports connection pool statistics. *database.DB satisfies it.
type DBStatter interface {
	Stats() sql.DBStats
}

// MQTTStatus reports the cloud connection state. *mqtt.Client satisfies it.
type MQTTStatus interface {
	IsConnected() bool
	SubscriptionCount() int
	HasSubscription(topic string) bool
	Topics() mqtt.Topics
}

// NodeMetrics is the response of GET /api/v1/metrics.
type NodeMetrics struct {
	Timestamp     string           `json:"timestamp"`
	Version       string           `json:"version"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Runtime       RuntimeMetrics   `json:"runtime"`
	WebSocket     WSMetrics        `json:"websocket"`
	MQTT          *MQTTMetrics     `json:"mqtt,omitempty"`
	Devices       DeviceMetrics    `json:"devices"`
	Database      *DatabaseMetrics `json:"database,omitempty"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains cloud transport state. RemoteSubscribed is false
// while the node cannot receive cloud writes.
type MQTTMetrics struct {
	Connected        bool `json:"connected"`
	Subscriptions    int  `json:"subscriptions"`
	RemoteSubscribed bool `json:"remote_subscribed"`
}

// DeviceMetrics counts the registry.
type DeviceMetrics struct {
	Devices int  `json:"devices"`
	Params  int  `json:"params"`
	Sealed  bool `json:"sealed"`
}

// DatabaseMetrics contains SQLite connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	node := s.dispatcher.Node()
	devices := node.Devices()
	params := 0
	for _, d := range devices {
		params += len(d.Params())
	}

	m := NodeMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(mem.Alloc) / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.hub.ClientCount()},
		Devices: DeviceMetrics{
			Devices: len(devices),
			Params:  params,
			Sealed:  node.Sealed(),
		},
	}

	if s.mqtt != nil {
		m.MQTT = &MQTTMetrics{
			Connected:        s.mqtt.IsConnected(),
			Subscriptions:    s.mqtt.SubscriptionCount(),
			RemoteSubscribed: s.mqtt.HasSubscription(s.mqtt.Topics().ParamsRemote()),
		}
	}
	if s.db != nil {
		stats := s.db.Stats()
		m.Database = &DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, m)
}
