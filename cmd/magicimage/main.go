// =============================================================================
// Magic Image 命令行入口
// =============================================================================
// 使用方法:
//
//	magicimage key set sk-xxxx                       # 保存 API Key
//	magicimage models add --name 我的模型 --value m   # 添加自定义模型
//	magicimage generate --prompt "a red fox"         # 文生图
//	magicimage generate --edit --image a.png --prompt "变成水彩风格"
//	magicimage history list                          # 查看历史
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/linkedlist771/magic-image-private/internal/telemetry"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// command 子命令处理函数
type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"key":      runKey,
	"models":   runModels,
	"history":  runHistory,
	"generate": runGenerate,
}

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) < 1 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "version":
		printVersion(out)
		return 0
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "Unknown command: %s\n", args[0])
		printUsage(errOut)
		return 2
	}

	common, rest, err := splitCommonFlags(args[1:])
	if err != nil {
		fmt.Fprintf(errOut, "%v\n", err)
		return 2
	}

	cfg, err := loadConfig(common)
	if err != nil {
		fmt.Fprintf(errOut, "Failed to load config: %v\n", err)
		return 1
	}

	a, err := newApp(ctx, cfg, out, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "Failed to initialize: %v\n", err)
		return 1
	}
	defer a.close()

	if err := cmd(ctx, a, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(errOut, "Error: %s\n", types.UserMessage(err))
		return 1
	}
	return 0
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	version := Version
	if version == "dev" {
		version = telemetry.Version()
	}
	fmt.Fprintf(w, "magicimage %s\n", version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	io.WriteString(w, `Magic Image - AI image generation client

Usage:
  magicimage <command> [--config <path>] [--env-file <path>] [subcommand] [options]

Commands:
  key        API key management (set, show, remove, import)
  models     Custom models (list, add, update, remove, select)
  history    Generation history (list, remove, clear)
  generate   Generate images from a prompt or source images
  version    Show version information
  help       Show this help message

Options for 'generate':
  --prompt <text>    Prompt text (required)
  --edit             Image-to-image mode
  --image <file>     Source image, repeatable (JPEG/PNG, up to 4)
  --mask <file>      Edit mask
  --model <id>       Model identifier (default: last selected)
  --type <variant>   Protocol variant hint: openai, dalle, gemini
  --size <WxH>       Output size for fixed-size variants
  --n <count>        Number of images (1-4)
  --quality <q>      Quality for fixed-size variants
  --ratio <r>        Aspect ratio: 1:1, 16:9, 9:16
  --out <dir>        Directory for inline images (default: current directory)
  --metrics          Print Prometheus metrics after the run

Examples:
  magicimage key set sk-xxxx
  magicimage key import "https://example.com/?url=https%3A%2F%2Fapi&apikey=sk-xxxx"
  magicimage models add --name "Flash" --value gemini-2.5-flash-imagen --type openai
  magicimage generate --prompt "a red fox" --ratio 16:9
  magicimage generate --edit --image cat.png --image bg.jpg --prompt "merge them"`+"\n")
}
