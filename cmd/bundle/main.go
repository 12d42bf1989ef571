// Command bundle validates a model bundle, writes it zstd-compressed and
// optionally publishes it to R2 for servers running with the r2 source.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/model"
	"github.com/garyellow/tucurso-bot/internal/r2client"
)

const contentType = "application/zstd"

// CLI flags
var (
	inFlag      = flag.String("in", "", "Bundle file (.yml, .json, optionally .zst). Empty uses the embedded bundle")
	outFlag     = flag.String("out", "", "Write the compressed bundle to this path")
	publishFlag = flag.Bool("publish", false, "Upload the compressed bundle to R2 under the model lock")
	keyFlag     = flag.String("key", "", "R2 object key (default: TUCURSO_MODEL_R2_KEY)")
)

type options struct {
	in      string
	out     string
	publish bool
	key     string
}

// uploader is the part of *r2client.Client used for publishing.
type uploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// publisher runs fn while holding the model lock.
type publisher struct {
	store uploader
	lock  func(ctx context.Context, fn func(context.Context) error) error
}

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{in: *inFlag, out: *outFlag, publish: *publishFlag, key: *keyFlag}

	var pub *publisher
	if opts.publish {
		cfg, err := config.Load()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		if !cfg.R2Enabled {
			_, _ = fmt.Fprintln(os.Stderr, "Publishing requires TUCURSO_R2_ENABLED=true")
			os.Exit(1)
		}
		if opts.key == "" {
			opts.key = cfg.ModelR2Key
		}
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2EndpointURL(),
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretAccessKey,
			BucketName:  cfg.R2BucketName,
		})
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Failed to create R2 client: %v\n", err)
			os.Exit(1)
		}
		lock := r2client.NewDistributedLock(client, cfg.R2LockKey, cfg.R2LockTTL, "publish bundle")
		pub = &publisher{store: client, lock: lock.WithLock}
	}

	if err := run(ctx, opts, pub, os.Stdout); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "bundle: %v\n", err)
		os.Exit(1)
	}
}

// run loads and validates the bundle, then writes and publishes the
// compressed encoding as requested.
func run(ctx context.Context, opts options, pub *publisher, w io.Writer) error {
	b, err := loadBundle(ctx, opts.in)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "✅ bundle %s valid: %d intents, %d responses, %d rules\n",
		b.Version, len(b.Intents), len(b.Responses), len(b.Rules))

	if opts.out == "" && !opts.publish {
		return nil
	}

	raw, err := b.Marshal()
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	compressed, err := r2client.CompressBytes(raw)
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := os.WriteFile(opts.out, compressed, 0o644); err != nil { //nolint:gosec // bundles are not secret
			return fmt.Errorf("write %s: %w", opts.out, err)
		}
		_, _ = fmt.Fprintf(w, "📦 wrote %s (%d bytes, %d uncompressed)\n", opts.out, len(compressed), len(raw))
	}

	if opts.publish {
		if pub == nil {
			return errors.New("publish requested without an R2 client")
		}
		if !r2client.IsCompressed(opts.key) {
			return fmt.Errorf("key %q must end in %s", opts.key, r2client.ZstdExt)
		}
		var etag string
		err := pub.lock(ctx, func(ctx context.Context) error {
			var uerr error
			etag, uerr = pub.store.Upload(ctx, opts.key, bytes.NewReader(compressed), contentType)
			return uerr
		})
		if err != nil {
			return fmt.Errorf("publish %s: %w", opts.key, err)
		}
		_, _ = fmt.Fprintf(w, "🚀 published %s (etag %s)\n", opts.key, etag)
	}
	return nil
}

func loadBundle(ctx context.Context, path string) (*model.Bundle, error) {
	if path == "" {
		return model.DefaultBundle()
	}
	fetched, err := model.FileSource{Path: path}.Fetch(ctx, "")
	if err != nil {
		return nil, err
	}
	return model.ParseBundle(fetched.Data, fetched.Ext)
}
