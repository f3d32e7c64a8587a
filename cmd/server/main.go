package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"github.com/newdaksh/FB-explorer/pkg/api"
	"github.com/newdaksh/FB-explorer/pkg/feed"
	"github.com/newdaksh/FB-explorer/pkg/graph"
	"github.com/newdaksh/FB-explorer/pkg/storage"
	"github.com/newdaksh/FB-explorer/pkg/storage/memdb"
	"github.com/newdaksh/FB-explorer/pkg/storage/mongo"
	"github.com/newdaksh/FB-explorer/pkg/storage/postgres"
	"github.com/newdaksh/FB-explorer/pkg/summary"
)

type Config struct {
	ServiceName string `toml:"serviceName"`
	HTTPAddr    string `toml:"httpAddr"`
	LogLevel    string `toml:"logLevel"`

	GraphBaseURL string `toml:"graphBaseURL"`
	GraphPageID  string `toml:"graphPageID"`

	OllamaURL   string `toml:"ollamaURL"`
	OllamaModel string `toml:"ollamaModel"`

	// Storage backend: "mongo", "postgres" or "memdb".
	Storage string `toml:"storage"`

	KafkaAddr  string `toml:"kafkaAddr"`
	KafkaTopic string `toml:"kafkaTopic"`
	KafkaBatch int    `toml:"kafkaBatch"`

	StaticDir string `toml:"staticDir"`

	CommentsInitialLimit int `toml:"commentsInitialLimit"`
	CommentsPageLimit    int `toml:"commentsPageLimit"`
	AttachmentsPageSize  int `toml:"attachmentsPageSize"`
}

func main() {
	var (
		configPath  string
		httpAddr    string
		logLevel    string
		storageKind string
	)

	flag.StringVar(&configPath, "config", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&storageKind, "storage", "", "Storage backend: mongo, postgres or memdb.")
	flag.Parse()

	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Fatalf("[server] failed to load config file %s: %v", configPath, err)
	}

	// Override config with flags if set
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if storageKind != "" {
		cfg.Storage = storageKind
	}

	if !strings.Contains(cfg.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	switch cfg.LogLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	shutdownTimeout := 10 * time.Second

	db, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("[server] failed to initialize storage: %v", err)
	}

	graphConf := graph.Config{
		BaseURL:     cfg.GraphBaseURL,
		PageID:      cfg.GraphPageID,
		AccessToken: os.Getenv("GRAPH_ACCESS_TOKEN"),
	}
	if !graphConf.IsValid() {
		log.Fatalf("[server] invalid graph config (is GRAPH_ACCESS_TOKEN set?): %s", graphConf)
	}
	gw := graph.New(graphConf)

	dashboard := feed.New(gw, feed.Config{
		CommentsInitialLimit: cfg.CommentsInitialLimit,
		CommentsPageLimit:    cfg.CommentsPageLimit,
		AttachmentsPageSize:  cfg.AttachmentsPageSize,
	})

	summarizerConf := summary.Config{URL: cfg.OllamaURL, Model: cfg.OllamaModel}
	if !summarizerConf.IsValid() {
		log.Fatalf("[server] invalid summarizer config: %+v", summarizerConf)
	}
	summarizer := summary.New(summarizerConf)

	var kafkaWriter *kafka.Writer
	if cfg.KafkaAddr != "" && cfg.KafkaTopic != "" {
		kafkaWriter = &kafka.Writer{
			Addr:      kafka.TCP(cfg.KafkaAddr),
			Topic:     cfg.KafkaTopic,
			BatchSize: cfg.KafkaBatch,
		}
		if err := createTopic(kafkaWriter.Addr.String(), kafkaWriter.Topic); err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
	} else {
		log.Warnf("[server] kafka was not configured, request logs will not be sent to Kafka")
	}

	a := api.New(cfg.ServiceName, db, dashboard, gw, summarizer, kafkaWriter, cfg.StaticDir)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: a.Router(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}

	if err := db.Close(shutdownCtx); err != nil {
		log.Errorf("[server] error disconnecting from DB: %v", err)
	} else {
		log.Info("[server] disconnected from DB")
	}
}

func openStorage(cfg Config) (storage.Storage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Storage {
	case "", "mongo":
		conf, err := mongo.NewConfig()
		if err != nil {
			return nil, err
		}
		db, err := mongo.New(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
		}
		log.Infof("[server] connected to mongo: %s:%s/%s", conf.Host, conf.Port, conf.DBName)
		return db, nil

	case "postgres":
		conf := postgres.Config{
			User:     "postgres",
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Host:     os.Getenv("POSTGRES_HOST"),
			Port:     os.Getenv("POSTGRES_PORT"),
			DBName:   "fbexplorer",
		}
		if !conf.IsValid() {
			return nil, fmt.Errorf("invalid postgres config: %s", conf)
		}
		db, err := postgres.New(ctx, conf.ConString())
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrDBNotResponding, err)
		}
		log.Infof("[server] connected to postgres: %s", conf)
		return db, nil

	case "memdb":
		log.Info("[server] run server with in memory DB")
		return memdb.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func createTopic(broker, topic string) error {
	conn, err := kafka.DialContext(context.Background(), "tcp", broker)
	if err != nil {
		return err
	}
	defer conn.Close()

	return conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
}
