// Package main provides vaetrain, a CLI that trains the dense VAE on
// synthetic multivariate sinusoids.
//
// Usage:
//
//	vaetrain -epochs 50 -len 24 -horizon 12 -feat 3 -latent 4 -checkpoint run.vae
//	vaetrain -checkpoint run.vae -resume -epochs 80
//	vaetrain version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/readytensor/rt-forecasting-var-enc-fcst/autodiff"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/backend/cpu"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/optim"
	"github.com/readytensor/rt-forecasting-var-enc-fcst/vae"
)

const version = "v0.1.0"

type Backend = *autodiff.Backend[*cpu.Backend]

type options struct {
	epochs     int
	batch      int
	lr         float64
	latent     int
	encodeLen  int
	decodeLen  int
	feat       int
	weight     float64
	samples    int
	hidden     string
	val        float64
	seed       int64
	checkpoint string
	resume     bool
	logLevel   string
	prior      int
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("vaetrain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&o.epochs, "epochs", 20, "Total training epochs")
	fs.IntVar(&o.batch, "batch", 32, "Batch size")
	fs.Float64Var(&o.lr, "lr", 0.001, "Adam learning rate")
	fs.IntVar(&o.latent, "latent", 4, "Latent dimension")
	fs.IntVar(&o.encodeLen, "len", 24, "History window length (encode_len)")
	fs.IntVar(&o.decodeLen, "horizon", 0, "Target window length (decode_len), 0 = same as -len")
	fs.IntVar(&o.feat, "feat", 3, "Features per step")
	fs.Float64Var(&o.weight, "weight", float64(vae.DefaultReconstructionWeight), "Reconstruction loss weight")
	fs.IntVar(&o.samples, "samples", 64, "Number of synthetic series")
	fs.StringVar(&o.hidden, "hidden", "64,32", "Comma-separated encoder hidden widths")
	fs.Float64Var(&o.val, "val", 0.2, "Validation fraction")
	fs.Int64Var(&o.seed, "seed", 42, "Random seed")
	fs.StringVar(&o.checkpoint, "checkpoint", "", "Checkpoint path (.vae)")
	fs.BoolVar(&o.resume, "resume", false, "Resume from -checkpoint if it exists")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.IntVar(&o.prior, "prior", 0, "Number of prior samples to print after training")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.decodeLen == 0 {
		o.decodeLen = o.encodeLen
	}
	if o.resume && o.checkpoint == "" {
		return nil, errors.New("-resume requires -checkpoint")
	}
	return o, nil
}

func parseHidden(s string) ([]int, error) {
	var hidden []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid hidden width %q", part)
		}
		hidden = append(hidden, n)
	}
	return hidden, nil
}

func sineConfig(o *options) vae.SineConfig {
	span := o.encodeLen + o.decodeLen
	return vae.SineConfig{
		Series:    o.samples,
		Length:    3 * span,
		FeatDim:   o.feat,
		EncodeLen: o.encodeLen,
		DecodeLen: o.decodeLen,
		Stride:    max(1, o.decodeLen/2),
		Noise:     0.05,
		Seed:      o.seed,
	}
}

// prepareData generates the windows, splits off the validation set and
// scales both splits with a scaler fitted on the training split only.
func prepareData(o *options) (train, val *vae.Dataset, scaler *vae.Scaler, err error) {
	ds, err := vae.Sinusoids(sineConfig(o))
	if err != nil {
		return nil, nil, nil, err
	}
	train, val = ds.Split(o.val)
	scaler = vae.FitScaler(train)
	if err := scaler.Transform(train); err != nil {
		return nil, nil, nil, err
	}
	if val != nil {
		if err := scaler.Transform(val); err != nil {
			return nil, nil, nil, err
		}
	}
	return train, val, scaler, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "version" {
		fmt.Fprintf(stdout, "vaetrain %s\n", version)
		return nil
	}

	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	hidden, err := parseHidden(o.hidden)
	if err != nil {
		return err
	}

	train, val, scaler, err := prepareData(o)
	if err != nil {
		return err
	}

	backend := autodiff.New(cpu.New())
	builder := vae.NewDenseBuilder(backend, hidden...)
	builder.Rand = rand.New(rand.NewSource(o.seed)) //nolint:gosec // G404: weight init

	cfg := vae.NewConfig(o.encodeLen, o.decodeLen, o.feat, o.latent,
		vae.WithReconstructionWeight(float32(o.weight)))
	model, err := vae.New[Backend](builder, cfg, backend,
		vae.WithName("vaetrain"),
		vae.WithRand(rand.New(rand.NewSource(o.seed+1)))) //nolint:gosec // G404: prior sampling
	if err != nil {
		return err
	}
	model.Compile(optim.NewAdam(model.Parameters(), optim.AdamConfig{LR: float32(o.lr)}, backend))
	fmt.Fprintln(stdout, model.Summary())

	tr := vae.NewTrainer(model, vae.TrainerConfig{
		Epochs:         o.epochs,
		BatchSize:      o.batch,
		Seed:           o.seed,
		Validation:     val,
		CheckpointPath: o.checkpoint,
	}, logger)

	if o.resume {
		if _, statErr := os.Stat(o.checkpoint); statErr == nil {
			if err := tr.Resume(o.checkpoint); err != nil {
				return err
			}
		} else {
			logger.WithField("path", o.checkpoint).Warn("no checkpoint to resume, starting fresh")
		}
	}

	history, err := tr.Fit(ctx, train)
	if err != nil {
		return err
	}
	if n := len(history); n > 0 {
		last := history[n-1]
		fields := logrus.Fields{"epochs": tr.Epoch(), "steps": tr.Step(), vae.MetricLoss: last.Train.Loss}
		if last.Validation != nil {
			fields["val_"+vae.MetricLoss] = last.Validation.Loss
		}
		logger.WithFields(fields).Info("training finished")
	}

	if o.prior > 0 {
		samples := model.SamplePrior(o.prior)
		values := append([]float32(nil), samples.Data()...)
		scaler.Inverse(values)
		step := o.decodeLen * o.feat
		for i := range o.prior {
			fmt.Fprintf(stdout, "prior[%d]: %v\n", i, values[i*step:(i+1)*step])
		}
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "vaetrain: %v\n", err)
		stop()
		os.Exit(1)
	}
}
