// Package event decodes copy requests delivered as S3 notification events.
package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/withObsrvr/obsrvr-archive-copier/internal/copier"
)

// Paths of the required fields, as reported in input errors.
const (
	RecordsPath = `Records`
	KeyPath     = `Records["s3"]["object"]["key"]`
	BucketPath  = `Records["s3"]["bucket"]["name"]`
)

type envelope struct {
	Records []json.RawMessage `json:"Records"`
}

// Parse decodes an event into object references, in record order. Every
// record is checked before any is returned, so a malformed record aborts the
// invocation before anything is copied. Keys are used as delivered.
func Parse(data []byte) ([]copier.ObjectRef, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.Records == nil {
		return nil, &copier.InputError{Record: compact(data), Path: RecordsPath}
	}

	refs := make([]copier.ObjectRef, 0, len(env.Records))
	for _, raw := range env.Records {
		var rec events.S3EventRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode event record: %w", err)
		}
		if rec.S3.Object.Key == "" {
			return nil, &copier.InputError{Record: compact(raw), Path: KeyPath}
		}
		if rec.S3.Bucket.Name == "" {
			return nil, &copier.InputError{Record: compact(raw), Path: BucketPath}
		}
		refs = append(refs, copier.ObjectRef{
			SourceBucket: rec.S3.Bucket.Name,
			SourceKey:    rec.S3.Object.Key,
		})
	}
	return refs, nil
}

func compact(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
