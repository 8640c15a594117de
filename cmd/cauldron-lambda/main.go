// Command cauldron-lambda serves the optimizer behind an AWS Lambda
// Function URL. The dataset is read once per cold start from S3
// (CAULDRON_S3_BUCKET, CAULDRON_S3_KEY, CAULDRON_S3_VERSION) or from a
// bundled file (CAULDRON_DATA).
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"k8s.io/klog/v2"

	"cauldron-optimizer/internal/coeff"
	"cauldron-optimizer/internal/config"
)

func loadFromEnv(ctx context.Context) (config.Config, *coeff.Store, error) {
	cfg := config.Default()
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, nil, err
	}
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return cfg, nil, err
	}
	klog.InfoS("[init] dataset loaded", "version", store.Version())
	return cfg, store, nil
}

func main() {
	defer klog.Flush()
	a := &app{load: loadFromEnv}
	lambda.Start(a.handler)
}
