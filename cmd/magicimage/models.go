package main

import (
	"context"
	"flag"
	"fmt"
	"text/tabwriter"

	"github.com/linkedlist771/magic-image-private/storage"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🧩 models 命令
// =============================================================================

func runModels(ctx context.Context, a *app, args []string) error {
	if len(args) < 1 {
		return types.NewValidationError("usage: models list|add|update|remove|select")
	}

	switch args[0] {
	case "list":
		return listModels(ctx, a)

	case "add":
		fs := flag.NewFlagSet("models add", flag.ContinueOnError)
		fs.SetOutput(a.errOut)
		name := fs.String("name", "", "Display name (defaults to the value)")
		value := fs.String("value", "", "Model identifier sent to the provider")
		variant := fs.String("type", string(types.VariantOpenAI), "Protocol variant: openai, dalle, gemini")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		m, err := a.store.AddCustomModel(ctx, types.CustomModel{
			Name:  *name,
			Value: *value,
			Type:  types.Variant(*variant),
		})
		if err != nil {
			return err
		}
		a.printf("Model added: %s (%s, %s)\n", m.Name, m.Value, m.ID)
		return nil

	case "update":
		if len(args) < 2 {
			return types.NewValidationError("usage: models update <id> [--name n] [--value v] [--type t]")
		}
		id := args[1]
		fs := flag.NewFlagSet("models update", flag.ContinueOnError)
		fs.SetOutput(a.errOut)
		name := fs.String("name", "", "New display name")
		value := fs.String("value", "", "New model identifier")
		variant := fs.String("type", "", "New protocol variant")
		if err := fs.Parse(args[2:]); err != nil {
			return err
		}

		var patch storage.CustomModelPatch
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "name":
				patch.Name = name
			case "value":
				patch.Value = value
			case "type":
				v := types.Variant(*variant)
				patch.Type = &v
			}
		})
		found, err := a.store.UpdateCustomModel(ctx, id, patch)
		if err != nil {
			return err
		}
		if !found {
			return types.NewValidationError(fmt.Sprintf("model %q not found", id))
		}
		a.printf("Model updated: %s\n", id)
		return nil

	case "remove":
		if len(args) < 2 {
			return types.NewValidationError("usage: models remove <id>")
		}
		found, err := a.store.RemoveCustomModel(ctx, args[1])
		if err != nil {
			return err
		}
		if !found {
			return types.NewValidationError(fmt.Sprintf("model %q not found", args[1]))
		}
		a.printf("Model removed: %s\n", args[1])
		return nil

	case "select":
		if len(args) < 2 {
			return types.NewValidationError("usage: models select <model>")
		}
		if err := a.store.SetLastSelectedModel(ctx, args[1]); err != nil {
			return err
		}
		a.printf("Selected model: %s\n", args[1])
		return nil

	default:
		return types.NewValidationError(fmt.Sprintf("unknown models subcommand %q", args[0]))
	}
}

func listModels(ctx context.Context, a *app) error {
	models, err := a.store.CustomModels(ctx)
	if err != nil {
		return err
	}
	selected, err := currentModel(ctx, a)
	if err != nil {
		return err
	}

	a.printf("Selected: %s\n", selected)
	if len(models) == 0 {
		a.printf("No custom models\n")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVALUE\tTYPE")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, m.Name, m.Value, m.Type)
	}
	return tw.Flush()
}

// currentModel 上次选择的模型，没有记录时使用配置的默认模型
func currentModel(ctx context.Context, a *app) (string, error) {
	model, ok, err := a.store.LastSelectedModel(ctx)
	if err != nil {
		return "", err
	}
	if !ok {
		return a.cfg.Generation.DefaultModel, nil
	}
	return model, nil
}
