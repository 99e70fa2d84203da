/*
Package config loads and validates analytics wiring configuration.

# Overview

config describes how an application mounts its analytics scope: which sink
kind to use, how it is addressed, queue sizing, and the ambient fields
(screen, session, default metadata) seeded into every snapshot. It supports
YAML and JSON files plus environment variable overrides.

# Basic Usage

Load from a file and validate:

	cfg, err := config.FromFile("analytics.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
	    log.Fatal(err)
	}

A minimal YAML config:

	screen: lobby
	defaults:
	  app_version: "1.4.2"
	queue:
	  buffer_size: 512
	sink:
	  kind: sqlite
	  path: ./events.db

# Environment Overrides

FromEnv starts from Default() and applies ANALYTICS_* variables:

	ANALYTICS_SCREEN=lobby
	ANALYTICS_SINK_KIND=clickhouse
	ANALYTICS_SINK_CLICKHOUSE_ADDR=ch-1:9000,ch-2:9000
	ANALYTICS_SINK_CLICKHOUSE_DATABASE=product

# Sink Kinds

Supported kinds: memory, jsonl, sqlite, clickhouse. The file-backed kinds
require a path; clickhouse requires at least one address and a database.
Validate reports the first violation with a sentinel-backed error.
*/
package config
