package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"siteforge/internal/core/config"
	"siteforge/internal/domain"
)

// Optimizer 是不透明的外部图像变换（压缩/缩放由外部实现决定）
type Optimizer interface {
	Optimize(ctx context.Context, filename, contentType string, data []byte) ([]byte, string, error)
}

// PassthroughOptimizer 原样透传，未接入外部变换服务时的默认实现
type PassthroughOptimizer struct{}

func (PassthroughOptimizer) Optimize(_ context.Context, _, contentType string, data []byte) ([]byte, string, error) {
	return data, contentType, nil
}

// S3API / PresignAPI 只声明用到的子集，测试里塞假实现
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type PresignAPI interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

const (
	maxPutRetries    = 3
	signedURLExpires = 60 * time.Second
)

type Uploader struct {
	client    S3API
	presigner PresignAPI
	bucket    string
	publicURL string // 形如 https://bucket.s3.region.amazonaws.com，可被配置覆盖
	optimizer Optimizer
	log       *zap.Logger
}

func NewUploader(client S3API, presigner PresignAPI, bucket, publicURL string, opt Optimizer, log *zap.Logger) *Uploader {
	if opt == nil {
		opt = PassthroughOptimizer{}
	}
	return &Uploader{
		client:    client,
		presigner: presigner,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		optimizer: opt,
		log:       log,
	}
}

// NewS3Client 按配置构建 AWS S3 客户端；Endpoint 非空时指向兼容实现
func NewS3Client(ctx context.Context, cfg config.S3) (*s3.Client, *s3.PresignClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return client, s3.NewPresignClient(client), nil
}

// UploadAsset 变换后上传；key 按上传者 + 毫秒时间戳命名，
// 不同用户同名文件不会撞 key。仅对象存储写入做有限重试。
func (u *Uploader) UploadAsset(ctx context.Context, userID, filename, contentType string, data []byte) (url, key string, err error) {
	if len(data) == 0 || filename == "" {
		return "", "", fmt.Errorf("%w: empty file", domain.ErrValidation)
	}

	body, ct, err := u.optimizer.Optimize(ctx, filename, contentType, data)
	if err != nil {
		return "", "", fmt.Errorf("%w: transform: %v", domain.ErrUpload, err)
	}

	key = u.objectKey(userID, filename)
	var lastErr error
	for attempt := 1; attempt <= maxPutRetries; attempt++ {
		_, lastErr = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(body),
			ContentType: aws.String(ct),
		})
		if lastErr == nil {
			return u.assetURL(key), key, nil
		}
		if ctx.Err() != nil {
			break
		}
		u.log.Warn("s3 put retry",
			zap.Int("attempt", attempt), zap.String("key", key), zap.Error(lastErr))
		select {
		case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
		case <-ctx.Done():
		}
	}
	return "", "", fmt.Errorf("%w: %v", domain.ErrUpload, lastErr)
}

// SignedUploadURL 预签名 PUT，60 秒过期，客户端直传
func (u *Uploader) SignedUploadURL(ctx context.Context, userID, filename, contentType string) (url, key string, err error) {
	if filename == "" {
		return "", "", fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	key = u.objectKey(userID, filename)
	req, err := u.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignOptions) { o.Expires = signedURLExpires })
	if err != nil {
		return "", "", fmt.Errorf("%w: presign: %v", domain.ErrUpload, err)
	}
	return req.URL, key, nil
}

func (u *Uploader) objectKey(userID, filename string) string {
	// 去掉路径分隔，防止目录穿越式的 key
	filename = strings.NewReplacer("/", "_", "\\", "_").Replace(filename)
	return fmt.Sprintf("%s/%d-%s", userID, time.Now().UnixMilli(), filename)
}

func (u *Uploader) assetURL(key string) string {
	if u.publicURL != "" {
		return u.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
}
