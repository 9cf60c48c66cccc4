package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/linkedlist771/magic-image-private/generation"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🕘 history 命令
// =============================================================================

func runHistory(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return types.NewValidationError("usage: history list|remove|clear")
	}

	switch args[0] {
	case "list":
		entries, err := a.store.History(ctx)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			a.printf("No history\n")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCREATED\tMODEL\tRATIO\tIMAGE\tPROMPT")
		for _, e := range entries {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				e.ID, e.CreatedAt, e.Model, e.AspectRatio, shortRef(e.URL), firstLine(e.Prompt))
		}
		return tw.Flush()

	case "remove":
		if len(args) < 2 {
			return types.NewValidationError("usage: history remove <id>")
		}
		found, err := a.store.RemoveHistory(ctx, args[1])
		if err != nil {
			return err
		}
		if !found {
			return types.NewValidationError(fmt.Sprintf("history entry %q not found", args[1]))
		}
		a.printf("History entry removed: %s\n", args[1])
		return nil

	case "clear":
		if err := a.store.ClearHistory(ctx); err != nil {
			return err
		}
		a.printf("History cleared\n")
		return nil

	default:
		return types.NewValidationError(fmt.Sprintf("unknown history subcommand %q", args[0]))
	}
}

// shortRef 内联图片只显示类型与大小
func shortRef(ref string) string {
	if !generation.IsDataURI(ref) {
		return ref
	}
	data, mime, err := generation.DecodeDataURI(ref)
	if err != nil {
		return "(inline image)"
	}
	return fmt.Sprintf("(inline %s, %d bytes)", mime, len(data))
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
