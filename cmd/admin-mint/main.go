// Package main grants presale tokens through the admin path.
//
// Usage:
//
//	admin-mint [flags] <tier-id> <count>
//
// Examples:
//
//	admin-mint 5 20   # WS-20, 20 tokens to the admin wallet
//	admin-mint -recipient <pubkey> 4 1
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"vigri-presale/internal/api"
	"vigri-presale/internal/config"
	"vigri-presale/internal/domain"
	"vigri-presale/internal/logger"
	"vigri-presale/internal/solana"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	envFile := flag.String("env", ".env", "Path to .env file")
	recipientFlag := flag.String("recipient", "", "Recipient public key (default: admin wallet)")
	choiceFlag := flag.Int("choice", 0, "Design choice for the tree/steel tier (1 or 2)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <tier-id> <count>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	tier, count, err := parseArgs(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadAdminMintConfig(*configFile, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(logger.Config{Debug: true}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	kp, err := solana.LoadKeypairFile(expandHome(cfg.KeypairPath))
	if err != nil {
		logger.Fatal("Failed to load keypair", zap.String("path", cfg.KeypairPath), zap.Error(err))
	}
	logger.Info("Admin wallet", zap.Stringer("pubkey", kp.PublicKey))

	recipient := kp.PublicKey
	if *recipientFlag != "" {
		if recipient, err = solana.ParsePublicKey(*recipientFlag); err != nil {
			logger.Fatal("Invalid recipient", zap.Error(err))
		}
	}

	choice, err := parseChoice(*choiceFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	client := api.NewClient(cfg.APIURL, kp,
		api.WithTimeout(cfg.Timeout),
		api.WithMaxRetries(cfg.MaxRetries),
	)

	ctx := context.Background()
	logger.Info("admin_mint", zap.Stringer("tier", tier), zap.Int("count", count))

	for i := 0; i < count; i++ {
		res, err := client.AdminMint(ctx, api.AdminMintRequest{
			TierID:       uint8(tier),
			Recipient:    recipient,
			DesignChoice: choice,
		})
		if err != nil {
			logger.Fatal("admin_mint failed", zap.Int("index", i+1), zap.Error(err))
		}

		logger.Info(fmt.Sprintf("[%d/%d] minted", i+1, count),
			zap.Stringer("mint", res.Token.Mint),
			zap.Stringer("metadata", res.Metadata.Address),
			zap.Uint16("serial", res.Event.Serial),
			zap.Uint16("design_key", res.DesignKey),
			zap.String("uri", res.Metadata.URI),
		)
	}

	logger.Info("Done")
}

// parseArgs reads <tier-id> <count>.
func parseArgs(args []string) (domain.TierID, int, error) {
	if len(args) != 2 {
		return 0, 0, fmt.Errorf("expected <tier-id> <count>, got %d arguments", len(args))
	}

	tier, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil || !domain.TierID(tier).Valid() {
		return 0, 0, fmt.Errorf("invalid tier id %q", args[0])
	}

	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("invalid count %q", args[1])
	}
	return domain.TierID(tier), count, nil
}

// parseChoice maps -choice to a design choice. Zero means none.
func parseChoice(n int) (*uint8, error) {
	if n == 0 {
		return nil, nil
	}
	if n < 1 || n > 255 {
		return nil, fmt.Errorf("invalid design choice %d: must be 1..255", n)
	}
	c := uint8(n)
	return &c, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
