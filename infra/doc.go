// Package infra holds the adapters to external systems: InfluxDB, Redis,
// Kafka, MQTT, SQLite and Prometheus. Each subpackage implements an
// interface declared under core and registers its factory on import.
package infra
