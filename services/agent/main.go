// Copyright (C) 2026 MarkUp Labs (dev@markuplabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/markuplabs/markup-agent/pkg/logging"
	"github.com/markuplabs/markup-agent/services/agent/observability"
	"github.com/markuplabs/markup-agent/services/agent/pipeline"
	"github.com/markuplabs/markup-agent/services/agent/routes"
	"github.com/markuplabs/markup-agent/services/guardrail"
	"github.com/markuplabs/markup-agent/services/llm"
	"google.golang.org/grpc/credentials/insecure"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "markup-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("markup-agent")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("AGENT_PORT")
	if port == "" {
		port = "12310"
	}

	logConfig := logging.FromEnv("markup-agent")
	if os.Getenv("MARKUP_LOG_FORMAT") == "" {
		// Services default to JSON, the CLI to text.
		logConfig.JSON = true
	}
	logger := logging.New(logConfig)
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	observability.InitMetrics()

	log.Println("Configuring the model backend")
	backend, pool, err := llm.NewBackend()
	if err != nil {
		log.Fatalf("Failed to initialize the model backend: %v", err)
	}
	slog.Info("Model backend ready", "backend", backend.Name(), "keys", pool.Size())

	opts := []llm.Option{}
	// AGENT_PROVIDER_RPS throttles outbound provider calls process-wide.
	if rps := os.Getenv("AGENT_PROVIDER_RPS"); rps != "" {
		r, err := strconv.ParseFloat(rps, 64)
		if err != nil || r <= 0 {
			log.Fatalf("invalid AGENT_PROVIDER_RPS %q", rps)
		}
		opts = append(opts, llm.WithRateLimit(r, 1))
	}
	client := llm.NewResilientClient(backend, pool, opts...)

	guard, err := guardrail.NewEngine()
	if err != nil {
		log.Fatalf("FATAL: Could not initialize the guardrail engine: %v", err)
	}

	runner := pipeline.NewRunner(client, guard, observability.DefaultMetrics)

	router := gin.Default()
	router.Use(otelgin.Middleware("markup-agent"))

	routes.SetupRoutes(router, runner, os.Getenv("AGENT_API_TOKEN"))

	log.Println("Starting the agent server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
