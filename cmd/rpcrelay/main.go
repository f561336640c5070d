package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rpcrelay/internal/batch"
	"rpcrelay/internal/cache"
	"rpcrelay/internal/config"
	"rpcrelay/internal/relay"
)

// callFlag collects repeatable -call method=paramsJSON flags in order
type callFlag struct {
	methods []string
	params  []json.RawMessage
}

func (f *callFlag) String() string {
	return strings.Join(f.methods, ",")
}

func (f *callFlag) Set(value string) error {
	method, params, found := strings.Cut(value, "=")
	if method == "" {
		return fmt.Errorf("expected method=paramsJSON, got %q", value)
	}
	f.methods = append(f.methods, method)
	if !found || params == "" {
		f.params = append(f.params, nil)
		return nil
	}
	if !json.Valid([]byte(params)) {
		return fmt.Errorf("params for %s is not valid JSON: %s", method, params)
	}
	f.params = append(f.params, json.RawMessage(params))
	return nil
}

func main() {
	// Parse flags
	configPath := flag.String("config", "config.json", "path to config file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall execution timeout")
	var calls callFlag
	flag.Var(&calls, "call", "request to batch, as method=paramsJSON (repeatable)")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Setup logger
	logger := setupLogger(cfg.LogLevel)

	if len(calls.methods) == 0 {
		logger.Fatal().Msg("at least one -call is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Create transport
	var transport relay.Transport
	endpoint := cfg.RPCURL
	if cfg.WSURL != "" && (cfg.PreferWS || cfg.RPCURL == "") {
		endpoint = cfg.WSURL
		transport, err = relay.NewWSTransport(ctx, cfg.WSURL, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("url", cfg.WSURL).Msg("failed to connect")
		}
	} else {
		transport = relay.NewHTTPTransport(cfg.RPCURL, cfg.GetRequestTimeoutDuration(), logger)
	}

	// Create result cache
	var resultCache cache.Cache
	if cfg.IsCacheEnabled() {
		resultCache, err = cache.NewMemoryCache(cfg.Cache.Size, cfg.Cache.GetTTLDuration())
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cache")
		}
		logger.Info().Int("size", cfg.Cache.Size).Int("ttl", cfg.Cache.TTL).Msg("cache enabled")
	} else {
		resultCache = cache.NewNoopCache()
	}

	r := relay.New(relay.Config{
		Transport: transport,
		Cache:     resultCache,
		Logger:    logger,
	})
	defer r.Close()

	// Build the batch in flag order; results come back in the same order
	b := batch.NewRequestWithCapacity(len(calls.methods))
	for i, method := range calls.methods {
		var params interface{}
		if calls.params[i] != nil {
			params = calls.params[i]
		}
		if err := b.AddRequest(method, params); err != nil {
			logger.Fatal().Err(err).Str("method", method).Msg("failed to add request")
		}
	}

	logger.Info().
		Int("requests", b.Len()).
		Str("endpoint", endpoint).
		Msg("executing batch")

	responses, err := r.ExecuteBatch(ctx, b)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch failed")
	}

	// Drain in submission order
	failed := 0
	for i := 0; ; i++ {
		var result json.RawMessage
		ok, err := responses.NextResponse(&result)
		if !ok {
			break
		}
		if err != nil {
			failed++
			logger.Error().Err(err).Str("method", calls.methods[i]).Msg("request failed")
			fmt.Printf("%s: error: %v\n", calls.methods[i], err)
			continue
		}
		fmt.Printf("%s: %s\n", calls.methods[i], string(result))
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
