// Command token mints a device token for an owner's clipboard. Every device
// given a token for the same owner shares one clipboard.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/zync/zync-go/internal/config"
	"github.com/zync/zync-go/internal/crypto"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	owner := flag.Int64("owner", 0, "owner id the token grants access to")
	device := flag.String("device", "", "optional device label")
	expiry := flag.Duration("expiry", cfg.JWTExpiry, "token lifetime")
	flag.Parse()

	if *owner <= 0 {
		fmt.Fprintln(os.Stderr, "usage: token -owner <id> [-device <label>] [-expiry <duration>]")
		os.Exit(2)
	}

	token, err := crypto.GenerateToken(*owner, *device, cfg.JWTSecret, *expiry)
	if err != nil {
		slog.Error("failed to sign token", "error", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
