package main

import (
	"pkt.systems/coderun"
	"pkt.systems/coderun/internal/appconfig"
	"pkt.systems/coderun/internal/backendhttp"
)

func backendConfig(cfg appconfig.Config) backendhttp.Config {
	return backendhttp.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.RequestTimeout(),
		Headers: cfg.Backend.Headers,
	}
}

func clientConfig(cfg appconfig.Config) coderun.ClientConfig {
	return coderun.ClientConfig{
		Backend:  backendConfig(cfg),
		Session:  cfg.SessionConfig(),
		StateDir: cfg.StateDir,
	}
}
