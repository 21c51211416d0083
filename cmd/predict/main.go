// Command predict scores one patient record given as a JSON argument and
// prints the result envelope on stdout.
//
//	predict '{"age":63,"sex":1,...}' -scaler scaler.json -model model.json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"CardioStage/internal/domain/models"
	"CardioStage/internal/services/artifact"
	"CardioStage/internal/usecase"
	xhttp "CardioStage/pkg/http"
	applogger "CardioStage/pkg/logger"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// run returns the process exit status: 0 on success, 1 on any error.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	fs.SetOutput(stderr)
	scalerPath := fs.String("scaler", envOr("SCALER_PATH", "scaler.json"), "scaler artifact path")
	modelPath := fs.String("model", envOr("MODEL_PATH", "model.json"), "model artifact path")
	modelType := fs.String("type", envOr("MODEL_TYPE", artifact.TypeForest), "model type: forest, logistic or remote")
	remoteURL := fs.String("remote-url", os.Getenv("MODEL_REMOTE_URL"), "base URL of the remote model")
	strict := fs.Bool("strict", false, "reject out-of-range categorical codes")
	timeout := fs.Duration("timeout", 5*time.Second, "evaluation timeout")

	// the record may come first, as in `predict '{...}' -model m.json`
	var input string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		input, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return fail(stdout, err)
	}
	if input == "" && fs.NArg() > 0 {
		input = fs.Arg(0)
	}
	if input == "" {
		return fail(stdout, errors.New("usage: predict '<json record>' [flags]"))
	}

	rec, err := models.DecodeRecord([]byte(input))
	if err != nil {
		var missing *models.MissingFieldError
		if errors.As(err, &missing) {
			return fail(stdout, err)
		}
		return fail(stdout, fmt.Errorf("invalid record: %w", err))
	}

	logger, err := applogger.New(&applogger.Config{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		logger = applogger.NewNop()
	}

	scaler, err := artifact.LoadScaler(*scalerPath)
	if err != nil {
		return fail(stdout, err)
	}
	model, err := artifact.LoadModel(artifact.Spec{
		Type:      *modelType,
		Path:      *modelPath,
		RemoteURL: *remoteURL,
		Timeout:   *timeout,
		Retries:   1,
	})
	if err != nil {
		return fail(stdout, err)
	}

	ev := usecase.NewEvaluator(scaler, model,
		usecase.WithStrictCategories(*strict),
		usecase.WithEvaluatorLogger(logger),
	)
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := ev.EvaluateFrom(ctx, models.SourceCLI, "", rec)
	if err != nil {
		return fail(stdout, err)
	}
	if err := json.NewEncoder(stdout).Encode(models.NewPredictResponse(res)); err != nil {
		return 1
	}
	return 0
}

func fail(stdout io.Writer, err error) int {
	_ = json.NewEncoder(stdout).Encode(xhttp.ErrorEnvelope{Status: xhttp.StatusError, Message: err.Error()})
	return 1
}
