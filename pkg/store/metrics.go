package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StoreLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "havenstore_store_loads_total",
		Help: "Room list loads from the backend.",
	})
	StoreWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "havenstore_store_writes_total",
		Help: "Room list writes to the backend.",
	})
	DedupRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "havenstore_dedup_removed_total",
		Help: "Duplicate messages removed by load-time dedup.",
	})
	CorruptDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "havenstore_corrupt_store_total",
		Help: "Times a stored value failed to decode as cipher and as JSON.",
	})
	LegacyMigrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "havenstore_legacy_migrations_total",
		Help: "Legacy plaintext or blob stores migrated to the current format.",
	})
	RoomCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "havenstore_rooms",
		Help: "Rooms present in the store at last scan.",
	})
)
