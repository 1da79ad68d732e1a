package cli

// Version is the CLI version, overridden at build time:
//
//	go build -ldflags "-X github.com/weftsh/weft/internal/cli.Version=0.3.0"
var Version = "dev"
