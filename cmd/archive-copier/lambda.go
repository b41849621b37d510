package main

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/spf13/cobra"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/copier"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/logging"
	"github.com/withObsrvr/obsrvr-archive-copier/internal/server"
)

func newLambdaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lambda",
		Short: "Run as an AWS Lambda function handler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			lambda.StartWithOptions(lambdaHandler(a.copier), lambda.WithContext(cmd.Context()))
			return nil
		},
	}
}

func lambdaHandler(h server.Handler) func(context.Context, json.RawMessage) ([]copier.CopyResult, error) {
	return func(ctx context.Context, raw json.RawMessage) ([]copier.CopyResult, error) {
		id := logging.GenerateCorrelationID()
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			id = lc.AwsRequestID
		}
		return server.Invoke(logging.WithCorrelationID(ctx, id), h, raw)
	}
}
