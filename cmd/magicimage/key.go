package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"strings"

	"github.com/linkedlist771/magic-image-private/config"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🔐 key 命令
// =============================================================================

func runKey(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return types.NewValidationError("usage: key set|show|remove|import")
	}

	switch args[0] {
	case "set":
		if len(args) < 2 {
			return types.NewValidationError("usage: key set <api-key>")
		}
		cred, err := a.store.SaveAPICredential(ctx, args[1])
		if err != nil {
			return err
		}
		a.printf("API key saved: %s\n", cred.MaskedKey())
		return nil

	case "show":
		fs := flag.NewFlagSet("key show", flag.ContinueOnError)
		fs.SetOutput(a.errOut)
		reveal := fs.Bool("reveal", false, "Print the full key")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		cred, ok, err := a.store.APICredential(ctx)
		if err != nil {
			return err
		}
		if !ok {
			a.printf("No API key configured\n")
			return nil
		}
		key := cred.MaskedKey()
		if *reveal {
			key = cred.Key
		}
		a.printf("Key:      %s\nEndpoint: %s\nCreated:  %s\n", key, cred.BaseURL, cred.CreatedAt)
		return nil

	case "remove":
		if err := a.store.RemoveAPICredential(ctx); err != nil {
			return err
		}
		a.printf("API key removed\n")
		return nil

	case "import":
		if len(args) < 2 {
			return types.NewValidationError("usage: key import <share-link>")
		}
		key, endpoint, err := parseShareLink(args[1])
		if err != nil {
			return err
		}
		cred, err := a.store.SaveAPICredential(ctx, key)
		if err != nil {
			return err
		}
		if endpoint != config.FixedAPIURL {
			a.printf("Note: endpoint %s ignored, requests always go to %s\n", endpoint, config.FixedAPIURL)
		}
		a.printf("API key imported: %s\n", cred.MaskedKey())
		return nil

	default:
		return types.NewValidationError(fmt.Sprintf("unknown key subcommand %q", args[0]))
	}
}

// parseShareLink 解析 ?url=...&apikey=... 形式的分享链接，两个参数都必须存在。
// http: 地址升级为 https:
func parseShareLink(link string) (key, endpoint string, err error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", "", types.NewValidationError("invalid share link").WithCause(err)
	}
	q := u.Query()
	endpoint = strings.TrimSpace(q.Get("url"))
	key = strings.TrimSpace(q.Get("apikey"))
	if endpoint == "" || key == "" {
		return "", "", types.NewValidationError("share link must carry both url and apikey parameters")
	}
	if strings.HasPrefix(endpoint, "http:") {
		endpoint = "https:" + strings.TrimPrefix(endpoint, "http:")
	}
	return key, strings.TrimRight(endpoint, "/"), nil
}
