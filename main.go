package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	gnarkLogger "github.com/consensys/gnark/logger"
	"github.com/urfave/cli/v2"

	"veil/veil-verifier/config"
	"veil/veil-verifier/logging"
	"veil/veil-verifier/server"
	"veil/veil-verifier/verifier"
)

func main() {
	runCli()
}

func runCli() {
	gnarkLogger.Set(*logging.Logger())
	app := cli.App{
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Run the verification service",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json-logging", Usage: "enable JSON logging", Required: false},
					&cli.StringFlag{Name: "config", Usage: "TOML config file", Required: false},
					&cli.StringFlag{Name: "address", Usage: "address for the verifier server", Value: "0.0.0.0:3001", Required: false},
					&cli.StringFlag{Name: "metrics-address", Usage: "address for the metrics server", Value: "0.0.0.0:9998", Required: false},
					&cli.StringSliceFlag{Name: "key", Usage: "Path of a verifying key file to serve (repeatable)"},
					&cli.StringFlag{
						Name:  "redis-url",
						Usage: "Redis URL for queue processing (e.g., redis://localhost:6379)",
						Value: "",
					},
					&cli.BoolFlag{
						Name:  "queue-only",
						Usage: "Run only queue workers (no HTTP server)",
						Value: false,
					},
					&cli.BoolFlag{
						Name:  "server-only",
						Usage: "Run only HTTP server (no queue workers)",
						Value: false,
					},
				},
				Action: func(context *cli.Context) error {
					if context.Bool("json-logging") {
						logging.SetJSONOutput()
					}

					keyPaths := context.StringSlice("key")
					address := context.String("address")
					metricsAddress := context.String("metrics-address")
					redisURL := context.String("redis-url")

					if configFile := context.String("config"); configFile != "" {
						cfg, err := config.ReadConfig(configFile)
						if err != nil {
							return err
						}
						if len(keyPaths) == 0 {
							keyPaths = cfg.Keys
						}
						if !context.IsSet("address") && cfg.Server.Address != "" {
							address = cfg.Server.Address
						}
						if !context.IsSet("metrics-address") && cfg.Server.MetricsAddress != "" {
							metricsAddress = cfg.Server.MetricsAddress
						}
						if redisURL == "" {
							redisURL = cfg.Redis.URL
						}
					}
					if redisURL == "" {
						redisURL = os.Getenv("REDIS_URL")
					}

					keys, err := loadVerifyingKeys(keyPaths)
					if err != nil {
						return err
					}
					if len(keys) == 0 {
						return fmt.Errorf("no verifying keys loaded")
					}

					queueOnly := context.Bool("queue-only")
					serverOnly := context.Bool("server-only")

					enableQueue := redisURL != "" && !serverOnly
					enableServer := !queueOnly

					if !enableServer && !enableQueue {
						return fmt.Errorf("at least one of server or queue mode must be enabled")
					}

					logging.Logger().Info().
						Bool("enable_queue", enableQueue).
						Bool("enable_server", enableServer).
						Int("verifying_keys", len(keys)).
						Msg("Starting verification service")

					var workers []server.QueueWorker
					var redisQueue *server.RedisQueue
					var cleanup server.RunningJob
					var instance server.RunningJob

					if enableQueue {
						redisQueue, err = server.NewRedisQueue(redisURL)
						if err != nil {
							return fmt.Errorf("failed to connect to Redis: %w", err)
						}

						cleanup = redisQueue.StartCleanupRoutine()

						if stats, err := redisQueue.GetQueueStats(); err == nil {
							logging.Logger().Info().Interface("initial_queue_stats", stats).Msg("Redis connection successful")
						}

						worker := server.NewVerificationWorker(redisQueue, keys)
						workers = append(workers, worker)
						go worker.Start()
						logging.Logger().Info().Msg("Queue worker started")
					}

					if enableServer {
						serverConfig := server.Config{
							Address:        address,
							MetricsAddress: metricsAddress,
							APIKey:         server.GetAPIKeyFromEnv(),
						}

						if redisQueue != nil {
							instance = server.RunWithQueue(&serverConfig, redisQueue, keys)
						} else {
							instance = server.Run(&serverConfig, keys)
						}
					}

					sigint := make(chan os.Signal, 1)
					signal.Notify(sigint, os.Interrupt)
					<-sigint
					logging.Logger().Info().Msg("Received sigint, shutting down")

					if len(workers) > 0 {
						for _, worker := range workers {
							worker.Stop()
						}
						time.Sleep(2 * time.Second)
						logging.Logger().Info().Msg("All queue workers stopped")
					}

					if enableQueue {
						cleanup.RequestStop()
					}

					if enableServer {
						instance.RequestStop()
						instance.AwaitStop()
						logging.Logger().Info().Msg("HTTP server stopped")
					}

					if redisQueue != nil {
						if stats, err := redisQueue.GetQueueStats(); err == nil {
							logging.Logger().Info().Interface("final_queue_stats", stats).Msg("Final queue statistics")
						}
					}

					logging.Logger().Info().Msg("Shutdown completed")
					return nil
				},
			},
			{
				Name:  "verify",
				Usage: "Verify a single proof from a request file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "Verifying key file", Required: true},
					&cli.StringFlag{Name: "request", Usage: "JSON request file (reads stdin when omitted)", Required: false},
				},
				Action: func(context *cli.Context) error {
					keyPath := context.String("key")
					vk, err := verifier.ReadVerifyingKey(keyPath)
					if err != nil {
						return err
					}

					var buf []byte
					if requestFile := context.String("request"); requestFile != "" {
						buf, err = os.ReadFile(requestFile)
					} else {
						buf, err = readStdin()
					}
					if err != nil {
						return err
					}

					req, err := server.ParseVerifyRequest(buf)
					if err != nil {
						return err
					}
					proof, inputs, err := req.Decode()
					if err != nil {
						return err
					}

					keyName := keyNameFromPath(keyPath)
					result := server.RunVerification(vk, keyName, proof, inputs)
					if result.Error != "" {
						return fmt.Errorf("verification failed: %s (code %d)", result.Error, result.ErrorCode)
					}

					out, _ := json.MarshalIndent(result, "", "  ")
					fmt.Println(string(out))
					if !result.Verified {
						os.Exit(1)
					}
					return nil
				},
			},
			{
				Name:  "plan",
				Usage: "Print the instruction plan for a key size",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "public-inputs", Usage: "Number of public inputs", Value: 1, Required: false},
				},
				Action: func(context *cli.Context) error {
					n := int(context.Uint("public-inputs"))
					if n < 1 {
						return fmt.Errorf("at least one public input is required")
					}

					prepareInstructions := n * verifier.PreparePublicInputsRounds
					miller := verifier.CombinedMillerLoop
					finalExp := verifier.FinalExponentiation

					fmt.Printf("public inputs:          %d\n", n)
					fmt.Printf("account size:           %d bytes\n", verifier.AccountSize(n))
					fmt.Printf("prepare inputs:         %d rounds, %d instructions\n",
						verifier.PreparePublicInputsTotalRounds(n), prepareInstructions)
					fmt.Printf("combined miller loop:   %d rounds, %d instructions, %d transactions\n",
						miller.TotalRounds(), miller.InstructionCount(), miller.TransactionCount())
					fmt.Printf("final exponentiation:   %d rounds, %d instructions, %d transactions\n",
						finalExp.TotalRounds(), finalExp.InstructionCount(), finalExp.TransactionCount())
					fmt.Printf("precompute build:       %d instructions, %d table bytes\n",
						verifier.PrecomputeInstructions(n), verifier.PrecomputeAccountSize(n))
					return nil
				},
			},
			{
				Name:  "precompute",
				Usage: "Build the public-input tables for a verifying key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "key", Usage: "Verifying key file", Required: true},
					&cli.StringFlag{Name: "output", Usage: "Output file for the tables", Required: true},
				},
				Action: func(context *cli.Context) error {
					vk, err := verifier.ReadVerifyingKey(context.String("key"))
					if err != nil {
						return err
					}

					logging.Logger().Info().
						Int("public_inputs", vk.PublicInputsCount).
						Uint32("instructions", verifier.PrecomputeInstructions(vk.PublicInputsCount)).
						Msg("Building precomputed tables")

					data := make([]byte, verifier.PrecomputeAccountSize(vk.PublicInputsCount))
					account, err := verifier.NewPrecomputesAccount(data, vk.GammaABCPoints())
					if err != nil {
						return err
					}
					for !account.IsSetup() {
						if err := account.PartialPrecompute(); err != nil {
							return err
						}
					}

					if err := os.WriteFile(context.String("output"), data, 0644); err != nil {
						return err
					}
					logging.Logger().Info().
						Str("output", context.String("output")).
						Int("bytes", len(data)).
						Msg("Precomputed tables written")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.Logger().Fatal().Err(err).Msg("App failed.")
	}
}

func loadVerifyingKeys(paths []string) (map[string]*verifier.VerifyingKey, error) {
	keys := make(map[string]*verifier.VerifyingKey)
	for _, path := range paths {
		vk, err := verifier.ReadVerifyingKey(path)
		if err != nil {
			return nil, fmt.Errorf("loading verifying key %s: %w", path, err)
		}
		name := keyNameFromPath(path)
		if _, ok := keys[name]; ok {
			return nil, fmt.Errorf("duplicate verifying key name %q", name)
		}
		keys[name] = vk
		logging.Logger().Info().
			Str("name", name).
			Int("public_inputs", vk.PublicInputsCount).
			Msg("Loaded verifying key")
	}
	return keys, nil
}

func keyNameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func readStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil, err
	}
	if info.Mode()&os.ModeCharDevice != 0 {
		return nil, fmt.Errorf("no request file given and stdin is a terminal")
	}
	return io.ReadAll(os.Stdin)
}
