package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/linkedlist771/magic-image-private/generation"
	"github.com/linkedlist771/magic-image-private/transport"
	"github.com/linkedlist771/magic-image-private/types"
)

// =============================================================================
// 🎨 generate 命令
// =============================================================================

// stringList 可重复的字符串参数
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type generateOptions struct {
	prompt  string
	edit    bool
	images  stringList
	mask    string
	model   string
	variant string
	size    string
	count   int
	quality string
	ratio   string
	outDir  string
	metrics bool
}

func parseGenerateFlags(a *app, args []string) (*generateOptions, error) {
	gen := a.cfg.Generation
	opts := &generateOptions{}

	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	fs.StringVar(&opts.prompt, "prompt", "", "Prompt text")
	fs.BoolVar(&opts.edit, "edit", false, "Image-to-image mode")
	fs.Var(&opts.images, "image", "Source image file (repeatable)")
	fs.StringVar(&opts.mask, "mask", "", "Edit mask file")
	fs.StringVar(&opts.model, "model", "", "Model identifier")
	fs.StringVar(&opts.variant, "type", "", "Protocol variant hint")
	fs.StringVar(&opts.size, "size", gen.DefaultSize, "Output size")
	fs.IntVar(&opts.count, "n", gen.DefaultCount, "Number of images")
	fs.StringVar(&opts.quality, "quality", gen.DefaultQuality, "Quality")
	fs.StringVar(&opts.ratio, "ratio", gen.DefaultAspectRatio, "Aspect ratio")
	fs.StringVar(&opts.outDir, "out", ".", "Directory for inline images")
	fs.BoolVar(&opts.metrics, "metrics", false, "Print Prometheus metrics after the run")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.prompt == "" && fs.NArg() > 0 {
		opts.prompt = strings.Join(fs.Args(), " ")
	}
	return opts, nil
}

// intent 读取参考图并组装生成意图
func (o *generateOptions) intent() (generation.Intent, error) {
	in := generation.Intent{
		Prompt:      o.prompt,
		Mode:        generation.ModeTextToImage,
		Size:        o.size,
		Count:       o.count,
		Quality:     o.quality,
		AspectRatio: o.ratio,
	}
	if !o.edit {
		return in, nil
	}
	in.Mode = generation.ModeImageToImage

	var src generation.SourceImages
	for _, path := range o.images {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, types.NewValidationError(fmt.Sprintf("read source image %s", path)).WithCause(err)
		}
		if err := src.Add(data, ""); err != nil {
			return in, err
		}
	}
	if o.mask != "" {
		data, err := os.ReadFile(o.mask)
		if err != nil {
			return in, types.NewValidationError(fmt.Sprintf("read mask %s", o.mask)).WithCause(err)
		}
		if err := src.SetMask(data, ""); err != nil {
			return in, err
		}
	}
	in.Sources = src.List()
	in.Mask = src.Mask()
	return in, nil
}

func runGenerate(ctx context.Context, a *app, args []string) error {
	opts, err := parseGenerateFlags(a, args)
	if err != nil {
		return err
	}
	intent, err := opts.intent()
	if err != nil {
		return err
	}

	sel := generation.Selection{Model: opts.model}
	if sel.Model == "" {
		if sel.Model, err = currentModel(ctx, a); err != nil {
			return err
		}
	}
	if opts.variant != "" {
		if sel.Variant, err = types.ParseVariant(opts.variant); err != nil {
			return types.NewValidationError(err.Error())
		}
	}

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	snap, err := a.generate(ctx, orch, intent, sel)
	if err != nil {
		return err
	}
	if err := a.report(snap, opts.outDir); err != nil {
		return err
	}

	if opts.metrics && a.collector != nil {
		return a.collector.WriteText(a.out)
	}
	return nil
}

func (a *app) orchestrator() (*generation.Orchestrator, error) {
	variants, err := generation.ParseVariants(a.cfg.Generation.SupportedVariants)
	if err != nil {
		return nil, err
	}
	classifier, err := generation.NewClassifier(a.store, variants, generation.DefaultRules())
	if err != nil {
		return nil, err
	}

	client := a.transport
	if client == nil {
		client = transport.NewClient(transport.Config{
			BaseURL:        a.cfg.API.BaseURL,
			Timeout:        a.cfg.API.Timeout,
			RateLimitRPS:   a.cfg.API.RateLimitRPS,
			RateLimitBurst: a.cfg.API.RateLimitBurst,
		}, a.store, a.logger)
	}

	return generation.New(generation.Options{
		Transport:  client,
		Store:      a.store,
		Classifier: classifier,
		Collector:  a.collector,
		Logger:     a.logger,
		Tracer:     a.telemetry.Tracer("github.com/linkedlist771/magic-image-private/generation"),
	})
}

// generate 执行一次生成并等待结束，流式文本实时写到 out
func (a *app) generate(ctx context.Context, orch *generation.Orchestrator, intent generation.Intent, sel generation.Selection) (generation.Snapshot, error) {
	var (
		mu      sync.Mutex
		printed int
	)
	unsubscribe := orch.Subscribe(func(s generation.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if len(s.Buffer) > printed {
			fmt.Fprint(a.out, s.Buffer[printed:])
			printed = len(s.Buffer)
		}
	})
	defer unsubscribe()

	res, err := orch.Generate(ctx, intent, sel)
	if err != nil {
		return generation.Snapshot{}, err
	}

	snap, err := orch.Wait(ctx)
	if err != nil {
		orch.Reset()
		return snap, fmt.Errorf("generation interrupted: %w", err)
	}
	if res.Pending {
		mu.Lock()
		if printed > 0 {
			fmt.Fprintln(a.out)
		}
		mu.Unlock()
	}
	if snap.State == generation.StateFailed {
		return snap, snap.Err
	}
	return snap, nil
}

// report 打印图片引用，内联图片写入 outDir
func (a *app) report(snap generation.Snapshot, outDir string) error {
	if snap.Warning != nil {
		fmt.Fprintf(a.errOut, "Warning: result not saved to history: %s\n", types.UserMessage(snap.Warning))
	}

	for i, ref := range snap.Images {
		if !generation.IsDataURI(ref) {
			a.printf("%s\n", ref)
			continue
		}
		path, err := writeInlineImage(outDir, snap.Session, i, ref)
		if err != nil {
			return err
		}
		a.logger.Debug("inline image written", zap.String("path", path))
		a.printf("%s\n", path)
	}
	return nil
}

func writeInlineImage(dir string, session uint64, index int, ref string) (string, error) {
	data, mime, err := generation.DecodeDataURI(ref)
	if err != nil {
		return "", err
	}
	ext := ".png"
	if mime == "image/jpeg" {
		ext = ".jpg"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("magic-image-%d-%d%s", session, index+1, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
