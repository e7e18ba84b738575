package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clinicops/medflow/agent"
	"github.com/clinicops/medflow/config"
	"github.com/clinicops/medflow/logger"
)

type cli struct {
	cfg config.Config
}

func setupFlags(cmd *cobra.Command) error {
	cmd.Flags().String("config-file", "", "Path to config file.")
	cmd.Flags().Int("http-port", 8080, "http port for rest endpoints")
	cmd.Flags().String("storage-impl", "sqlite", "implementation of underline storage (sqlite|redis)")
	cmd.Flags().String("sqlite-path", "data/medflow.db", "path to the sqlite database file")
	cmd.Flags().String("redis-addr", "localhost:6379", "comma separated list of redis host:port")
	cmd.Flags().String("redis-password", "", "redis password")
	cmd.Flags().String("namespace", "medflow", "namespace used in redis storage")
	cmd.Flags().String("gemini-api-key", "", "gemini api key")
	cmd.Flags().String("gemini-model", "", "gemini model override")
	cmd.Flags().String("openai-api-key", "", "openai api key")
	cmd.Flags().String("openai-model", "", "openai model override")
	cmd.Flags().String("whatsapp-phone-number-id", "", "whatsapp cloud api phone number id")
	cmd.Flags().String("whatsapp-access-token", "", "whatsapp cloud api access token")
	cmd.Flags().Int("max-chain-depth", 10, "maximum length of a trigger_workflow chain")
	cmd.Flags().Int("cache-ttl", 30, "workflow definition cache ttl in seconds")
	cmd.Flags().Int("schedule-tick", 30, "scheduled workflow scan interval in seconds")
	cmd.Flags().String("log-level", "info", "log level")
	return viper.BindPFlags(cmd.Flags())
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	configFile, err := cmd.Flags().GetString("config-file")
	if err != nil {
		return err
	}
	viper.SetConfigFile(configFile)

	if err = viper.ReadInConfig(); err != nil {
		// it's ok if config file doesn't exist
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	c.cfg.HttpPort = viper.GetInt("http-port")
	c.cfg.StorageType = config.StorageType(viper.GetString("storage-impl"))
	c.cfg.SqliteConfig.Path = viper.GetString("sqlite-path")
	c.cfg.RedisConfig.Addrs = strings.Split(viper.GetString("redis-addr"), ",")
	c.cfg.RedisConfig.Password = viper.GetString("redis-password")
	c.cfg.RedisConfig.Namespace = viper.GetString("namespace")
	c.cfg.AIConfig.GeminiApiKey = viper.GetString("gemini-api-key")
	c.cfg.AIConfig.GeminiModel = viper.GetString("gemini-model")
	c.cfg.AIConfig.OpenAIApiKey = viper.GetString("openai-api-key")
	c.cfg.AIConfig.OpenAIModel = viper.GetString("openai-model")
	c.cfg.WhatsappConfig.PhoneNumberId = viper.GetString("whatsapp-phone-number-id")
	c.cfg.WhatsappConfig.AccessToken = viper.GetString("whatsapp-access-token")
	c.cfg.EngineConfig.MaxDepth = viper.GetInt("max-chain-depth")
	c.cfg.EngineConfig.CacheTTLSeconds = viper.GetInt("cache-ttl")
	c.cfg.EngineConfig.ScheduleTickSeconds = viper.GetInt("schedule-tick")
	c.cfg.LogLevel = viper.GetString("log-level")
	return nil
}

func (c *cli) run(cmd *cobra.Command, args []string) error {
	logger.InitLogger(c.cfg.LogLevel)
	ag, err := agent.New(c.cfg)
	if err != nil {
		panic(err)
	}
	err = ag.Start()
	if err != nil {
		panic(err)
	}
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	return ag.Shutdown()
}

func main() {
	cli := &cli{}

	cmd := &cobra.Command{
		Use:     "medflow",
		PreRunE: cli.setupConfig,
		RunE:    cli.run,
	}

	if err := setupFlags(cmd); err != nil {
		log.Fatal(err)
	}

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
