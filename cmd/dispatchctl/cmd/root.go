package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shenikar/fireguard_dispatch/internal/client"
	"github.com/shenikar/fireguard_dispatch/internal/models"
	"github.com/shenikar/fireguard_dispatch/pkg/logger"
)

var (
	// serverURL - адрес диспетчерского API
	serverURL string
	apiKey    string
	actorID   string
	actorRole string
	timeout   time.Duration
	logLevel  string
	profPath  string

	// rootCmd - базовая команда dispatchctl
	rootCmd = &cobra.Command{
		Use:   "dispatchctl",
		Short: "Command line client for the FireGuard dispatch API.",
		Long: `Command line client for the FireGuard dispatch API.

Reads the versioned change log, follows the live event stream with a local
replica that resyncs itself after gaps and disconnects, and prints dashboard stats.

Connection settings can also be given as FIREGUARD_URL, FIREGUARD_API_KEY,
FIREGUARD_ACTOR_ID and FIREGUARD_ACTOR_ROLE, or in a YAML profile passed with
--profile. Explicit flags win over the profile.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if profPath == "" {
				return nil
			}
			p, err := loadProfile(profPath)
			if err != nil {
				return err
			}
			return applyProfile(cmd, p)
		},
	}
)

// Execute запускает CLI и завершает процесс с ненулевым кодом при ошибке
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newClient() (*client.Client, error) {
	return client.New(client.Options{
		BaseURL:   serverURL,
		APIKey:    apiKey,
		ActorID:   actorID,
		ActorRole: actorRole,
		Timeout:   timeout,
	})
}

func newLogger() *logrus.Logger {
	return logger.New(logger.Options{Level: logLevel, Format: "text", Output: os.Stderr})
}

// parseTopics разбирает список тем через запятую; пустая строка - все темы
func parseTopics(raw string) ([]models.Topic, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var topics []models.Topic
	for _, part := range strings.Split(raw, ",") {
		t := models.Topic(strings.TrimSpace(part))
		if !t.Valid() {
			return nil, fmt.Errorf("unknown topic %q, expected incident, resource or location", t)
		}
		topics = append(topics, t)
	}
	return topics, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&serverURL, "server", "s", envOr("FIREGUARD_URL", "http://localhost:8080"), "dispatch API base url")
	flags.StringVarP(&apiKey, "api-key", "k", envOr("FIREGUARD_API_KEY", ""), "API key")
	flags.StringVar(&actorID, "actor-id", envOr("FIREGUARD_ACTOR_ID", "dispatchctl"), "actor id sent to the server")
	flags.StringVar(&actorRole, "actor-role", envOr("FIREGUARD_ACTOR_ROLE", string(models.RoleDispatcher)), "actor role sent to the server")
	flags.DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	flags.StringVar(&logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	flags.StringVarP(&profPath, "profile", "p", envOr("FIREGUARD_PROFILE", ""), "YAML profile with connection settings")

	rootCmd.AddCommand(watchCmd, eventsCmd, statsCmd)
}
