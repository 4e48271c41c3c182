package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const s3ACL = "public-read"

// S3Store — хранение объектов в Amazon S3 с публичным чтением.
type S3Store struct {
	uploader *s3manager.Uploader
	client   *s3.S3
	bucket   string
}

// NewS3Store создаёт клиент S3. Учётные данные берутся из стандартной
// цепочки AWS (переменные окружения, профиль, роль инстанса).
// Дополнительные aws.Config применяются поверх региона.
func NewS3Store(bucket, region string, cfgs ...*aws.Config) (*S3Store, error) {
	sess, err := session.NewSession(append([]*aws.Config{{Region: aws.String(region)}}, cfgs...)...)
	if err != nil {
		return nil, fmt.Errorf("создание сессии AWS: %w", err)
	}
	return &S3Store{
		uploader: s3manager.NewUploader(sess),
		client:   s3.New(sess),
		bucket:   bucket,
	}, nil
}

// Put загружает объект и возвращает его URL.
func (s *S3Store) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	out, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(s.bucket),
		ACL:         aws.String(s3ACL),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        r,
	})
	if err != nil {
		return "", fmt.Errorf("загрузка %s в bucket %s: %w", key, s.bucket, err)
	}
	return out.Location, nil
}

// Delete удаляет объект. S3 не возвращает ошибку для отсутствующего ключа.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("удаление %s из bucket %s: %w", key, s.bucket, err)
	}
	return nil
}

// KeyFromURL поддерживает virtual-hosted (bucket.s3...amazonaws.com/key)
// и path-style (host/bucket/key) адреса.
func (s *S3Store) KeyFromURL(publicURL string) (string, bool) {
	u, err := url.Parse(publicURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	path := strings.TrimPrefix(u.Path, "/")
	if strings.HasPrefix(u.Host, s.bucket+".") {
		return path, path != ""
	}
	key, ok := strings.CutPrefix(path, s.bucket+"/")
	return key, ok && key != ""
}
