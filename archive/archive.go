/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package archive uploads forward-table eviction diagnostics as JSON
// summaries to S3, for operators who want a durable off-box record of
// what the endpoint evicted and why. Optional and off by default.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// EvictionSummary is one forward-entry eviction, serialized as a JSON
// object and uploaded as a single S3 object.
type EvictionSummary struct {
	Remote     string    `json:"remote"`
	EvictedAt  time.Time `json:"evicted_at"`
	IdleFor    string    `json:"idle_for"`
	BytesSent  uint64    `json:"bytes_sent"`
	BytesRecvd uint64    `json:"bytes_recvd"`
}

// Uploader writes EvictionSummary objects to one S3 bucket under a
// fixed key prefix.
type Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// Options configures a new Uploader.
type Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// New builds an Uploader from opts. When AccessKeyID is empty, the
// default AWS credential chain is used instead of static credentials.
func New(ctx context.Context, opts Options) (*Uploader, error) {
	var cfgOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		cfgOpts = append(cfgOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, cfgOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &Uploader{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// ObjectKey returns the S3 key Upload would use for summary under prefix.
func ObjectKey(prefix string, summary EvictionSummary) string {
	return fmt.Sprintf("%s/%s-%d.json", prefix, summary.Remote, summary.EvictedAt.UnixNano())
}

// Upload serializes summary as JSON and puts it at
// <prefix>/<remote>-<evicted_at-unixnano>.json in the bucket.
func (u *Uploader) Upload(ctx context.Context, summary EvictionSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	key := ObjectKey(u.prefix, summary)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	return err
}
