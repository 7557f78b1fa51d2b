package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/merkledrop-labs/merkledrop/pkg/config"
	"github.com/merkledrop-labs/merkledrop/pkg/distributor"
	"github.com/merkledrop-labs/merkledrop/pkg/logger"
	"github.com/merkledrop-labs/merkledrop/pkg/merkle"
	"github.com/merkledrop-labs/merkledrop/pkg/persistence"
	badgerstore "github.com/merkledrop-labs/merkledrop/pkg/persistence/badger"
	"github.com/merkledrop-labs/merkledrop/pkg/persistence/memory"
	redisstore "github.com/merkledrop-labs/merkledrop/pkg/persistence/redis"
	"github.com/merkledrop-labs/merkledrop/pkg/settlement"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

func main() {
	app := &cli.App{
		Name:  "merkledrop",
		Usage: "Merkle distribution commitment and claim proof tool",
		Description: `Builds merkle commitments over token distribution recipient lists,
persists the full distribution record, and regenerates claim proofs.

Only the merkle root is ever published on-chain; recipients later prove
membership with a small sibling path to claim their allocation.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "store",
				Value:   string(config.StoreTypeBadger),
				Usage:   "Distribution store backend: badger, redis, memory",
				EnvVars: []string{config.EnvStoreType},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "./merkledrop-data",
				Usage:   "Data directory for the badger store",
				EnvVars: []string{config.EnvDataDir},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis address (host:port) for the redis store",
				EnvVars: []string{config.EnvRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number (0-15)",
				EnvVars: []string{config.EnvRedisDB},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Build a distribution tree, publish its root, and persist the record",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "recipients",
						Aliases:  []string{"r"},
						Usage:    "Path to recipients JSON file: [{\"address\":\"0x..\",\"amount\":\"100\"}, ...]",
						Required: true,
					},
					&cli.DurationFlag{
						Name:  "expiry",
						Value: 90 * 24 * time.Hour,
						Usage: "Claim window duration",
					},
				},
				Action: runCreate,
			},
			{
				Name:  "claim",
				Usage: "Regenerate a claim proof and settle it",
				Flags: append(idAddressFlags(),
					&cli.BoolFlag{
						Name:  "prove-only",
						Usage: "Print the proof without submitting a claim",
					},
				),
				Action: runClaim,
			},
			{
				Name:   "verify",
				Usage:  "Regenerate a proof and check it against the persisted root",
				Flags:  idAddressFlags(),
				Action: runVerify,
			},
			{
				Name:   "inspect",
				Usage:  "Show a persisted distribution record, or list all ids",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "id", Usage: "Distribution id (omit to list)"}},
				Action: runInspect,
			},
			{
				Name:  "serve",
				Usage: "Run the HTTP claim API",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   8080,
						Usage:   "HTTP server port",
						EnvVars: []string{config.EnvPort},
					},
				},
				Action: runServe,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func idAddressFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "id",
			Usage:    "Distribution id",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "address",
			Aliases:  []string{"a"},
			Usage:    "Claimer address (0x-prefixed hex, up to 32 bytes)",
			Required: true,
		},
	}
}

// parseConfig assembles config from flags and environment
func parseConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	cfg.StoreType = config.StoreType(c.String("store"))
	if c.IsSet("data-dir") || cfg.DataDir == "" {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("redis-address") {
		cfg.RedisAddress = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.RedisPassword = c.String("redis-password")
	}
	if c.IsSet("redis-db") {
		cfg.RedisDB = c.Int("redis-db")
	}
	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	}
	cfg.Verbose = c.Bool("verbose")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup builds the logger, store and distributor shared by all commands.
// The settlement client here is the in-memory stub; a production deployment
// injects a real on-chain client behind the same interface.
func setup(c *cli.Context) (*config.Config, *zap.Logger, persistence.IDistributionStore, *distributor.Distributor, error) {
	cfg, err := parseConfig(c)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose})
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	store, err := openStore(cfg, l)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	d := distributor.New(store, settlement.NewStubClient(), l)
	return cfg, l, store, d, nil
}

func openStore(cfg *config.Config, l *zap.Logger) (persistence.IDistributionStore, error) {
	switch cfg.StoreType {
	case config.StoreTypeBadger:
		return badgerstore.NewBadgerStore(cfg.DataDir, l)
	case config.StoreTypeRedis:
		return redisstore.NewRedisStore(&redisstore.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, l)
	case config.StoreTypeMemory:
		l.Sugar().Warnw("Using in-memory store - all data will be lost on exit")
		return memory.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}

func loadRecipients(path string) ([]types.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipients file: %w", err)
	}

	var recipients []types.Recipient
	if err := json.Unmarshal(data, &recipients); err != nil {
		return nil, fmt.Errorf("failed to parse recipients file: %w", err)
	}
	return recipients, nil
}

func runCreate(c *cli.Context) error {
	_, _, store, d, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	recipients, err := loadRecipients(c.String("recipients"))
	if err != nil {
		return err
	}

	record, err := d.CreateDistribution(c.Context, recipients, time.Now().Add(c.Duration("expiry")))
	if err != nil {
		return fmt.Errorf("failed to create distribution: %w", err)
	}

	fmt.Printf("Distribution created\n")
	fmt.Printf("  id:         %s\n", record.DistributionID)
	fmt.Printf("  root:       %s\n", record.Root.Hex())
	fmt.Printf("  recipients: %d\n", len(record.Recipients))
	fmt.Printf("  total:      %s\n", record.TotalAmount().String())
	return nil
}

func runClaim(c *cli.Context) error {
	_, _, store, d, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	claimer, err := types.AddressFromHex(c.String("address"))
	if err != nil {
		return err
	}

	allocation, err := d.ProveAllocation(c.Context, c.String("id"), claimer)
	if err != nil {
		return err
	}

	fmt.Printf("Allocation found\n")
	fmt.Printf("  leaf index: %d\n", allocation.LeafIndex)
	fmt.Printf("  amount:     %s\n", allocation.Amount.String())
	fmt.Printf("  proof:      %s\n", hexutil.Encode(allocation.Proof))

	if c.Bool("prove-only") {
		return nil
	}

	receipt, err := d.Claim(c.Context, c.String("id"), claimer)
	if err != nil {
		return err
	}
	fmt.Printf("Claim settled, tx %s\n", receipt.TxHash.Hex())
	return nil
}

func runVerify(c *cli.Context) error {
	_, _, store, d, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	claimer, err := types.AddressFromHex(c.String("address"))
	if err != nil {
		return err
	}

	id := c.String("id")
	allocation, err := d.ProveAllocation(c.Context, id, claimer)
	if err != nil {
		return err
	}

	record, err := d.GetDistribution(id)
	if err != nil {
		return err
	}

	leaf, err := merkle.HashLeaf(claimer, allocation.Amount)
	if err != nil {
		return err
	}
	siblings, err := merkle.UnpackProof(allocation.Proof)
	if err != nil {
		return err
	}

	if !merkle.VerifyProof(leaf, siblings, record.Root) {
		return fmt.Errorf("proof does not verify against root %s", record.Root.Hex())
	}

	fmt.Printf("Proof verifies against root %s (leaf %d, %d siblings)\n",
		record.Root.Hex(), allocation.LeafIndex, len(siblings))
	return nil
}

func runInspect(c *cli.Context) error {
	_, _, store, d, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	id := c.String("id")
	if id == "" {
		ids, err := store.ListDistributionIDs()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			fmt.Println("No distributions stored")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	record, err := d.GetDistribution(id)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func runServe(c *cli.Context) error {
	cfg, l, store, d, err := setup(c)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv := distributor.NewServer(d, store, cfg.Port, l)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		l.Sugar().Infow("Shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Stop(ctx)
	}
}
